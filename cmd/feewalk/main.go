// Command feewalk replays the fee-calculation walkthrough: a contrived
// training-services company quoting subscription fees, driven through the
// incremental computation engine so that re-use, revalidation, and
// recomputation of cached results can be observed.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maya-framework/dip/internal/engine"
	"github.com/maya-framework/dip/internal/events"
	"github.com/maya-framework/dip/internal/feecalc"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "feewalk",
		Short:        "Walk through the fee-calculation example on the incremental engine",
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the scripted walkthrough scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			return walkthrough(feecalc.NewDatabase())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "trace",
		Short: "Run the walkthrough with an indented evaluation trace on stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			sink := events.NewConsoleSink(os.Stdout)
			return walkthrough(feecalc.NewDatabase(engine.WithEventSink(sink)))
		},
	})

	return root
}

// note prints narration aimed at the human reading the walkthrough output.
// Lines starting with "=>" report a checked query result; other lines
// without a leading '*' come from the engine's event trace (trace command).
func note(message string) {
	fmt.Println("\n\n****")
	for _, line := range strings.Split(message, "\n") {
		fmt.Println("**  " + strings.TrimSpace(line))
	}
	fmt.Println("**")
	fmt.Println()
}

func expect(what string, got feecalc.Dollars, err error, want feecalc.Dollars) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if got != want {
		return fmt.Errorf("%s: got %d, want %d", what, got, want)
	}
	fmt.Printf("=> %s = %d\n", what, got)
	return nil
}

func walkthrough(db feecalc.CostsDatabase) error {
	note(`Contrived setup: you own a company that provides training services, and need to quote
		a subscription fee to potential customers.

		The calculation is very simple: you have a fixed yearly base fee, but thanks to government funding
		can provide a discounted price to school-aged customers.

		The database has three inputs:
		    * base_fee()
		    * discount_amount()
		    * discount_age_limit()

		And two derived queries:
		    * one_year_fee(age)
		    * two_year_fee(age)

		Pseudo-code for the two derived queries:
		    * one_year_fee(age) = if age <= discount_age_limit { base_fee - discount_amount } else { base_fee }
		    * two_year_fee(age) = one_year_fee(age) + one_year_fee(age + 1)`)

	note(`Before we can query fees we need to set the input values.`)
	if err := db.SetBaseFee(100); err != nil {
		return err
	}
	if err := db.SetDiscountAmount(30); err != nil {
		return err
	}
	if err := db.SetDiscountAgeLimit(16); err != nil {
		return err
	}

	note(`16 is the maximum age for a young person's discount, so the one year fee for a 16 year old is base_fee - discount_amount.`)
	fee, err := db.OneYearFee(16)
	if err := expect("one_year_fee(16)", fee, err, 70); err != nil {
		return err
	}

	note(`17 is greater than the maximum age for a young person's discount, so the one year fee for a 17 year old is base_fee.`)
	fee, err = db.OneYearFee(17)
	if err := expect("one_year_fee(17)", fee, err, 100); err != nil {
		return err
	}

	note(`To compute the two year fee for a 17 year old we need to know the one year fee for a 17 year old and the one year fee for
		an 18 year old. We have already computed the first of these, so will re-use the cached value for one_year_fee(17) and
		compute one_year_fee(18).`)
	fee, err = db.TwoYearFee(17)
	if err := expect("two_year_fee(17)", fee, err, 200); err != nil {
		return err
	}

	note(`Update the discount provided to people under the discount age limit.`)
	if err := db.SetDiscountAmount(40); err != nil {
		return err
	}

	note(`The memo for one_year_fee(17) is out of date, as the database revision has increased since it was last verified.
		However, as neither the age limit threshold nor the base fee have changed its value is still valid.`)
	fee, err = db.OneYearFee(17)
	if err := expect("one_year_fee(17)", fee, err, 100); err != nil {
		return err
	}

	note(`As 16 <= discount_age_limit we will spot that one of the inputs to one_year_fee(16) has changed and have to recompute.`)
	fee, err = db.OneYearFee(16)
	if err := expect("one_year_fee(16)", fee, err, 60); err != nil {
		return err
	}

	note(`Government funding criteria have changed - we can now also provide discounts to 17 year olds.`)
	if err := db.SetDiscountAgeLimit(17); err != nil {
		return err
	}

	note(`Both one_year_fee(17) and one_year_fee(18) query the age limit, so both have potentially changed - we will need
		to rerun queries to tell. The value of one_year_fee(18) does not change, but the value of one_year_fee(17) does
		and so two_year_fee(17) also needs to be recomputed.`)
	fee, err = db.TwoYearFee(17)
	if err := expect("two_year_fee(17)", fee, err, 160); err != nil {
		return err
	}

	note(`Done. Final revision: ` + fmt.Sprint(db.Engine().Revision()))
	return nil
}
