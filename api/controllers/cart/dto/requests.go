package cartdto

import "github.com/shopspring/decimal"

type AddItemRequest struct {
	ProductID  string            `json:"product_id" validate:"required,max=64"`
	SkuID      string            `json:"sku_id" validate:"omitempty,max=64"`
	Quantity   int               `json:"quantity" validate:"required,min=1,max=9999"`
	Attributes map[string]string `json:"attributes" validate:"omitempty,max=32,dive,keys,max=64,endkeys,max=128"`
}

type DeleteItemsRequest struct {
	IDs []uint64 `json:"ids" validate:"required,min=1,max=100,dive,gt=0"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=9999"`
}

type UpdateAttributesRequest struct {
	Attributes map[string]string `json:"attributes" validate:"required,max=32,dive,keys,max=64,endkeys,max=128"`
}

type CouponRequest struct {
	Code string `json:"code" validate:"max=64"`
}

type ShippingRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
