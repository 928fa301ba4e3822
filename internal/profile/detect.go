package profile

import "context"

// Board identifies the machine the controller runs on
type Board struct {
	BoardID     string `json:"board_id"`
	ProductName string `json:"product_name"`
}

// Detect reads the board ID and product name from the host firmware tables
func Detect(ctx context.Context) (*Board, error) {
	return detectPlatformBoard(ctx)
}
