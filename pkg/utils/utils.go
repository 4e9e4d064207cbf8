// Package utils 提供时间/ID（雪花）/订单号/分页等通用工具
package utils

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SnowflakeID 雪花算法 ID 生成器
type SnowflakeID struct {
	mu        sync.Mutex
	timestamp int64
	sequence  int64
	nodeID    int64
}

// NewSnowflakeID 创建雪花 ID 生成器
func NewSnowflakeID(nodeID int64) *SnowflakeID {
	return &SnowflakeID{
		timestamp: 0,
		sequence:  0,
		nodeID:    nodeID & 0x3FF, // 10 bits
	}
}

// Generate 生成雪花 ID
func (s *SnowflakeID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & 0xFFF // 12 bits
		if s.sequence == 0 {
			// 等待下一毫秒
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	// 组合 ID：timestamp(41 bits) + nodeID(10 bits) + sequence(12 bits)
	return (now << 22) | (s.nodeID << 12) | s.sequence
}

// OrderNumberGenerator 订单号生成器
// 格式：<前缀><yyyyMMdd>-<雪花 ID 的 base36 编码>
type OrderNumberGenerator struct {
	prefix    string
	snowflake *SnowflakeID
}

// NewOrderNumberGenerator 创建订单号生成器
func NewOrderNumberGenerator(prefix string, nodeID int64) *OrderNumberGenerator {
	return &OrderNumberGenerator{
		prefix:    prefix,
		snowflake: NewSnowflakeID(nodeID),
	}
}

// Next 生成下一个订单号
func (g *OrderNumberGenerator) Next() string {
	id := g.snowflake.Generate()
	return fmt.Sprintf("%s%s-%s",
		g.prefix,
		time.Now().Format("20060102"),
		strings.ToUpper(strconv.FormatInt(id, 36)),
	)
}

// MaskCardNumber 仅保留卡号末四位
func MaskCardNumber(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) <= 4 {
		return digits
	}
	return "**** **** **** " + digits[len(digits)-4:]
}

// NormalizePage 规范化分页参数
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// NormalizePagination 规范化页码式分页参数
func NormalizePagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ParseUintParam 解析路径参数中的无符号整型 ID
func ParseUintParam(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// Retry 以固定退避重试执行 fn，最多 attempts 次
func Retry(attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(backoff)
		}
	}
	return err
}
