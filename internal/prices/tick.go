package prices

import (
	"encoding/json"
	"errors"
	"fmt"

	"tickerbar/internal/domain"

	"github.com/shopspring/decimal"
)

var ErrMalformedTick = errors.New("malformed tick")

type tickMessage struct {
	CryptoCurrency string           `json:"cryptoCurrency"`
	Price          *decimal.Decimal `json:"price"`
}

// ParseTick decodes a live update message. The price may be sent as a JSON
// number or as a numeric string.
func ParseTick(data []byte) (domain.Tick, error) {
	var msg tickMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Tick{}, fmt.Errorf("%w: %v", ErrMalformedTick, err)
	}
	if msg.CryptoCurrency == "" {
		return domain.Tick{}, fmt.Errorf("%w: missing cryptoCurrency", ErrMalformedTick)
	}
	if msg.Price == nil {
		return domain.Tick{}, fmt.Errorf("%w: missing price for %s", ErrMalformedTick, msg.CryptoCurrency)
	}
	if msg.Price.IsNegative() {
		return domain.Tick{}, fmt.Errorf("%w: negative price %s for %s", ErrMalformedTick, msg.Price, msg.CryptoCurrency)
	}
	return domain.Tick{
		Symbol: msg.CryptoCurrency,
		Price:  msg.Price.InexactFloat64(),
	}, nil
}
