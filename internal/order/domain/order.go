// Package domain 订单服务的领域模型
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Valid 判断状态是否为已知枚举值
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal 判断是否为终态
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// PaymentStatus 支付状态，与订单状态是两条松耦合的生命周期
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Order 订单实体
// 头部一经创建即不可变，仅状态/物流字段允许更新
type Order struct {
	gorm.Model
	// 订单号，唯一、可读、带日期
	OrderNumber string `gorm:"column:order_number;type:varchar(32);uniqueIndex;not null" json:"order_number"`
	// 所属顾客
	CustomerID uint `gorm:"column:customer_id;index;not null" json:"customer_id"`
	// 订单状态
	Status OrderStatus `gorm:"column:status;type:varchar(16);index;not null" json:"status"`
	// 支付状态
	PaymentStatus PaymentStatus `gorm:"column:payment_status;type:varchar(16);index;not null" json:"payment_status"`
	// 总金额，创建时按订单行小计求和冻结，此后不再重算
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(10,2);not null" json:"total_amount"`
	// 收货信息快照，非实时引用
	ShippingName       string `gorm:"column:shipping_name;type:varchar(64)" json:"shipping_name"`
	ShippingAddress    string `gorm:"column:shipping_address;type:varchar(255)" json:"shipping_address"`
	ShippingCity       string `gorm:"column:shipping_city;type:varchar(64)" json:"shipping_city"`
	ShippingPostalCode string `gorm:"column:shipping_postal_code;type:varchar(16)" json:"shipping_postal_code"`
	ShippingPhone      string `gorm:"column:shipping_phone;type:varchar(32)" json:"shipping_phone"`
	// 物流单号
	TrackingNumber string `gorm:"column:tracking_number;type:varchar(64)" json:"tracking_number"`
	// 支付引用（例如所用储蓄卡）
	PaymentRef string `gorm:"column:payment_ref;type:varchar(64)" json:"payment_ref"`
	// 发货时间
	ShippedAt *time.Time `gorm:"column:shipped_at" json:"shipped_at"`
	// 送达时间
	DeliveredAt *time.Time `gorm:"column:delivered_at" json:"delivered_at"`
	// 订单行
	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
}

// TableName 指定表名
func (Order) TableName() string { return "orders" }

// OrderLine 订单行
// 创建后不可变，单价为下单时刻的快照，独立于图书后续调价
type OrderLine struct {
	gorm.Model
	OrderID uint `gorm:"column:order_id;index;not null" json:"order_id"`
	BookID  uint `gorm:"column:book_id;index;not null" json:"book_id"`
	// 图书所属卖家，冗余存储以支持卖家订单视图
	SellerID uint `gorm:"column:seller_id;index;not null" json:"seller_id"`
	// 书名快照
	Title string `gorm:"column:title;type:varchar(255);not null" json:"title"`
	// 数量
	Quantity int `gorm:"column:quantity;not null" json:"quantity"`
	// 单价快照
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(10,2);not null" json:"unit_price"`
	// 小计
	Subtotal decimal.Decimal `gorm:"column:subtotal;type:decimal(10,2);not null" json:"subtotal"`
}

// TableName 指定表名
func (OrderLine) TableName() string { return "order_lines" }

// CanBeCancelled 仅 PENDING/PROCESSING 可取消
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// ContainsSeller 判断订单是否包含指定卖家的图书
func (o *Order) ContainsSeller(sellerID uint) bool {
	for _, line := range o.Lines {
		if line.SellerID == sellerID {
			return true
		}
	}
	return false
}

// SellerIDs 返回订单涉及的去重卖家 ID
func (o *Order) SellerIDs() []uint {
	seen := make(map[uint]struct{}, len(o.Lines))
	var ids []uint
	for _, line := range o.Lines {
		if _, ok := seen[line.SellerID]; ok {
			continue
		}
		seen[line.SellerID] = struct{}{}
		ids = append(ids, line.SellerID)
	}
	return ids
}

// ApplyStatus 应用状态变更并维护支付状态联动：
// DELIVERED 强制 PAID，CANCELLED 强制 REFUNDED，其余不自动联动
func (o *Order) ApplyStatus(next OrderStatus, now time.Time) {
	o.Status = next
	switch next {
	case OrderStatusShipped:
		if o.ShippedAt == nil {
			t := now
			o.ShippedAt = &t
		}
	case OrderStatusDelivered:
		if o.DeliveredAt == nil {
			t := now
			o.DeliveredAt = &t
		}
		o.PaymentStatus = PaymentStatusPaid
	case OrderStatusCancelled:
		o.PaymentStatus = PaymentStatusRefunded
	}
}

// 领域错误
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrNotFound             = errors.New("order not found")
	ErrForbidden            = errors.New("operation not permitted")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrPersistence          = errors.New("persistence failure")
)

// InvalidTransitionError 非法状态转换
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition from %s to %s", e.From, e.To)
}

// ItemsUnavailableError 再次购买时存在不可购书目
type ItemsUnavailableError struct {
	Titles []string
}

func (e *ItemsUnavailableError) Error() string {
	return fmt.Sprintf("items unavailable: %s", strings.Join(e.Titles, ", "))
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// CreateTx 在给定事务内创建订单及其全部订单行；
	// 订单号唯一键冲突时返回 ErrDuplicateOrderNumber
	CreateTx(ctx context.Context, tx *gorm.DB, order *Order) error
	// SaveTx 在给定事务内持久化订单的可变字段（状态/支付/物流/时间戳）
	SaveTx(ctx context.Context, tx *gorm.DB, order *Order) error
	// Get 获取订单，含订单行
	Get(ctx context.Context, orderID uint) (*Order, error)
	// ListByCustomer 列出顾客订单
	ListByCustomer(ctx context.Context, customerID uint, status OrderStatus, limit, offset int) ([]*Order, int64, error)
	// ListBySeller 列出包含指定卖家图书的订单
	ListBySeller(ctx context.Context, sellerID uint, limit, offset int) ([]*Order, int64, error)
	// ListAll 列出全部订单，供后台使用
	ListAll(ctx context.Context, status OrderStatus, limit, offset int) ([]*Order, int64, error)
	// ListDeliveredBetween 列出指定时间段内送达的订单，供营收汇总使用
	ListDeliveredBetween(ctx context.Context, from, to time.Time) ([]*Order, error)
}
