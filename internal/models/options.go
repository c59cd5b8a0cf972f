package models

// OptionType distinguishes calls from puts.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// Quote is a point-in-time bid/ask for a single contract.
// Last, IV and Volume are advisory and may be zero.
type Quote struct {
	Bid    float64
	Ask    float64
	Last   float64
	IV     float64
	Volume int64
}

// Mid returns the bid/ask midpoint.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// ChainRow is one contract in an option-chain snapshot.
type ChainRow struct {
	Contract     string
	Strike       int
	Type         OptionType
	Bid          float64
	Ask          float64
	Last         float64
	Volume       int64
	OpenInterest int64
	IV           float64
	Delta        float64
	Gamma        float64
	Theta        float64
	Vega         float64
}

// OptionChain indexes chain rows by strike and type.
type OptionChain struct {
	rows map[OptionType]map[int]ChainRow
}

// NewOptionChain builds an indexed chain from snapshot rows.
func NewOptionChain(rows []ChainRow) *OptionChain {
	c := &OptionChain{rows: map[OptionType]map[int]ChainRow{
		OptionCall: make(map[int]ChainRow),
		OptionPut:  make(map[int]ChainRow),
	}}
	for _, r := range rows {
		if r.Type != OptionCall && r.Type != OptionPut {
			continue
		}
		c.rows[r.Type][r.Strike] = r
	}
	return c
}

// Row returns the chain row for a strike and type, if present.
func (c *OptionChain) Row(strike int, typ OptionType) (ChainRow, bool) {
	r, ok := c.rows[typ][strike]
	return r, ok
}

// Len returns the number of rows in the chain.
func (c *OptionChain) Len() int {
	return len(c.rows[OptionCall]) + len(c.rows[OptionPut])
}

// StrikeCombo is an Iron Condor strike combination candidate.
// ShortCall == ShortPut == the rounded ATM strike; the long strikes sit
// one wing width out on either side.
type StrikeCombo struct {
	ShortCall int
	ShortPut  int
	LongCall  int
	LongPut   int
	NetCredit float64
	MaxLoss   float64
	Ratio     float64
	WingWidth int
}
