package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount 解析货币格式的价格字符串（如 "$1,299.00"、"₹ 499"）。
// 仅保留数字和小数点，解析失败时返回 0，不报错。
func ParseAmount(price string) decimal.Decimal {
	var b strings.Builder
	for _, r := range price {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LineTotal 单行小计 = 单价 × 数量
func LineTotal(price string, quantity int64) decimal.Decimal {
	return ParseAmount(price).Mul(decimal.NewFromInt(quantity))
}
