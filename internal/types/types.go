// README: Common value types shared across modules.
package types

// ID identifies a passenger, driver, or record.
type ID string

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Money is an integer amount in the smallest unit of Currency.
type Money struct {
	Amount   int64
	Currency string
}

// RSD builds a dinar amount, the only currency the service handles.
func RSD(amount int64) Money {
	return Money{Amount: amount, Currency: "RSD"}
}
