package application

// OrderService 对接口层暴露的订单服务门面，组合命令与查询两侧
type OrderService struct {
	*OrderCommandService
	*OrderQueryService
}

// NewOrderService 构造函数
func NewOrderService(command *OrderCommandService, query *OrderQueryService) *OrderService {
	return &OrderService{
		OrderCommandService: command,
		OrderQueryService:   query,
	}
}
