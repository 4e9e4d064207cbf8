package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/wyfcoding/bookstore/internal/cart/domain"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// newMockRepo 在 sqlmock 连接上构建仓储，用于断言实际发出的 SQL。
func newMockRepo(t *testing.T) (*cartRepositoryImpl, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	return &cartRepositoryImpl{db: db}, mock
}

// 行删除必须是物理 DELETE。若退化为软删除，墓碑行会占住
// (customer_id, book_id) 唯一键：之后 Save 的 upsert 把数量累加到
// 这条列表查询永远看不到的行上，该书再也加不进购物车。
func TestDeleteIssuesHardDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("^DELETE FROM `cart_lines`").
		WithArgs(7, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), 1, 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClearIssuesHardDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("^DELETE FROM `cart_lines`").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.Clear(context.Background(), 1); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// 删除后重新加购：DELETE 真正移走旧行，随后的 upsert 走 INSERT 分支。
func TestRemoveThenReAdd(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("^DELETE FROM `cart_lines`").
		WithArgs(7, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("^INSERT INTO `cart_lines` .*ON DUPLICATE KEY UPDATE `quantity`=quantity \\+ VALUES\\(quantity\\)").
		WillReturnResult(sqlmock.NewResult(8, 1))

	ctx := context.Background()
	if err := repo.Delete(ctx, 1, 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	line := &domain.CartLine{CustomerID: 1, BookID: 10, Quantity: 2}
	if err := repo.Save(ctx, line); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
