// Package feecalc is the example domain built on the engine: quoting a
// training-subscription fee with a fixed yearly base fee and a discount
// for school-aged customers.
package feecalc

import "github.com/maya-framework/dip/internal/engine"

// Type aliases to make the query code easier to follow.
type (
	Dollars = int32
	Years   = int32
)

// Identifiers for the queries used in this domain. Hidden from end-users
// behind the CostsDatabase interface below.
const (
	BaseFee          engine.QueryID = "base_fee"
	DiscountAgeLimit engine.QueryID = "discount_age_limit"
	DiscountAmount   engine.QueryID = "discount_amount"
	OneYearFee       engine.QueryID = "one_year_fee"
	TwoYearFee       engine.QueryID = "two_year_fee"
)

// CostsDatabase is the domain-facing surface over the engine. It exists
// for ergonomics only; callers could equally use engine.Database's Set and
// Get directly with the query ids above.
type CostsDatabase interface {
	// Setting inputs
	SetDiscountAgeLimit(ageLimit Years) error
	SetBaseFee(baseFee Dollars) error
	SetDiscountAmount(discountAmount Dollars) error

	// Reading inputs
	DiscountAgeLimit() (Years, error)
	BaseFee() (Dollars, error)
	DiscountAmount() (Dollars, error)

	// Derived queries
	OneYearFee(currentAge Years) (Dollars, error)
	TwoYearFee(currentAge Years) (Dollars, error)

	// Engine exposes the underlying database for introspection tooling
	// (dependency-graph snapshots, revision inspection).
	Engine() *engine.Database
}

type costsDatabase struct {
	db *engine.Database
}

// NewDatabase wires up the fee-calculation queries and returns a database
// ready for input sets. Options (an event sink, typically) are passed
// through to the engine.
func NewDatabase(opts ...engine.Option) CostsDatabase {
	inputIDs := []engine.QueryID{BaseFee, DiscountAgeLimit, DiscountAmount}

	// Only derived queries have functions; input queries are read straight
	// from their cached values.
	queryFunctions := map[engine.QueryID]engine.QueryFunc{
		OneYearFee: oneYearFeeQuery,
		TwoYearFee: twoYearFeeQuery,
	}

	return &costsDatabase{db: engine.New(inputIDs, queryFunctions, opts...)}
}

func (c *costsDatabase) SetDiscountAgeLimit(ageLimit Years) error {
	return c.db.Set(DiscountAgeLimit, engine.NoKey, ageLimit)
}

func (c *costsDatabase) SetBaseFee(baseFee Dollars) error {
	return c.db.Set(BaseFee, engine.NoKey, baseFee)
}

func (c *costsDatabase) SetDiscountAmount(discountAmount Dollars) error {
	return c.db.Set(DiscountAmount, engine.NoKey, discountAmount)
}

func (c *costsDatabase) DiscountAgeLimit() (Years, error) {
	return c.db.Get(DiscountAgeLimit, engine.NoKey)
}

func (c *costsDatabase) BaseFee() (Dollars, error) {
	return c.db.Get(BaseFee, engine.NoKey)
}

func (c *costsDatabase) DiscountAmount() (Dollars, error) {
	return c.db.Get(DiscountAmount, engine.NoKey)
}

func (c *costsDatabase) OneYearFee(currentAge Years) (Dollars, error) {
	return c.db.Get(OneYearFee, engine.IntKey(currentAge))
}

func (c *costsDatabase) TwoYearFee(currentAge Years) (Dollars, error) {
	return c.db.Get(TwoYearFee, engine.IntKey(currentAge))
}

func (c *costsDatabase) Engine() *engine.Database {
	return c.db
}

// Customers receive a discount if they're at or below the discount age
// limit.
func oneYearFeeQuery(db *engine.Database, currentAge engine.Key) (engine.Value, error) {
	age := currentAge.IntValue()

	limit, err := db.Get(DiscountAgeLimit, engine.NoKey)
	if err != nil {
		return 0, err
	}
	base, err := db.Get(BaseFee, engine.NoKey)
	if err != nil {
		return 0, err
	}
	if age <= limit {
		discount, err := db.Get(DiscountAmount, engine.NoKey)
		if err != nil {
			return 0, err
		}
		return base - discount, nil
	}
	return base, nil
}

// The fee for this year plus the fee for next year (no loyalty discounts
// here). Equal to 2 * one_year_fee unless the customer is currently at the
// discount age limit.
func twoYearFeeQuery(db *engine.Database, currentAge engine.Key) (engine.Value, error) {
	age := currentAge.IntValue()

	feeThisYear, err := db.Get(OneYearFee, engine.IntKey(age))
	if err != nil {
		return 0, err
	}
	feeNextYear, err := db.Get(OneYearFee, engine.IntKey(age+1))
	if err != nil {
		return 0, err
	}
	return feeThisYear + feeNextYear, nil
}
