package basket

type addLineRequest struct {
	ProductID  string            `json:"product_id" validate:"required,max=64"`
	SkuID      string            `json:"sku_id" validate:"omitempty,max=64"`
	Quantity   int               `json:"quantity" validate:"required,min=1,max=9999"`
	Attributes map[string]string `json:"attributes" validate:"omitempty,max=32,dive,keys,max=64,endkeys,max=128"`
}

type putLineRequest struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"min=0,max=9999"`
}

type changeStoreRequest struct {
	Mode string `json:"mode" validate:"required,oneof=default authed"`
}
