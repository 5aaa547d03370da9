package currency

import "fmt"

// Amount is integer counting lowest currency unit, e.g. $1.20 = 120
type Amount uint32

func (self Amount) Format100I() string { return fmt.Sprint(float32(self) / 100) }
