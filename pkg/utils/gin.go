package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParsePagination 从查询参数解析并规范化分页
func ParsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return NormalizePagination(page, pageSize)
}
