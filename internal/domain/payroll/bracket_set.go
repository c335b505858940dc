package payroll

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var bracketSetNamespace = uuid.MustParse("6f1c7a52-3b8e-4d0a-9c61-2f4e8b7d5a10")

// NewBracketSet sorts a copy of brackets ascending by MinIncome, checks that they
// partition [0, ∞) and derives a content-addressed set ID.
func NewBracketSet(asOf time.Time, brackets []TaxBracket) (BracketSet, error) {
	sorted := make([]TaxBracket, len(brackets))
	copy(sorted, brackets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinIncome.LessThan(sorted[j].MinIncome)
	})

	set := BracketSet{AsOf: asOf, Brackets: sorted}
	if err := set.Validate(); err != nil {
		return BracketSet{}, err
	}
	set.ID = bracketSetID(sorted)
	return set, nil
}

// Validate checks the partition invariant: first bracket starts at zero, each bracket
// starts where the previous one ends, and exactly one (the last) is open-ended.
func (s BracketSet) Validate() error {
	if len(s.Brackets) == 0 {
		return fmt.Errorf("%w: no active tax brackets as of %s", ErrConfiguration, s.AsOf.Format("2006-01-02"))
	}

	openEnded := 0
	for _, b := range s.Brackets {
		if b.OpenEnded() {
			openEnded++
		}
	}
	if openEnded != 1 {
		return fmt.Errorf("%w: expected exactly one open-ended bracket, found %d", ErrConfiguration, openEnded)
	}

	if !s.Brackets[0].MinIncome.IsZero() {
		return fmt.Errorf("%w: lowest bracket starts at %s, not 0", ErrConfiguration, s.Brackets[0].MinIncome)
	}
	for i := 1; i < len(s.Brackets); i++ {
		prev, cur := s.Brackets[i-1], s.Brackets[i]
		if prev.OpenEnded() {
			return fmt.Errorf("%w: open-ended bracket %s is not the highest", ErrConfiguration, prev.ID)
		}
		switch cmp := cur.MinIncome.Cmp(*prev.MaxIncome); {
		case cmp < 0:
			return fmt.Errorf("%w: brackets %s and %s overlap", ErrConfiguration, prev.ID, cur.ID)
		case cmp > 0:
			return fmt.Errorf("%w: gap between %s and %s in brackets %s and %s",
				ErrConfiguration, *prev.MaxIncome, cur.MinIncome, prev.ID, cur.ID)
		}
	}
	return nil
}

func bracketSetID(brackets []TaxBracket) string {
	parts := make([]string, 0, len(brackets))
	for _, b := range brackets {
		maxIncome := "inf"
		if b.MaxIncome != nil {
			maxIncome = b.MaxIncome.String()
		}
		effectiveTo := "-"
		if b.EffectiveTo != nil {
			effectiveTo = b.EffectiveTo.UTC().Format(time.RFC3339)
		}
		parts = append(parts, strings.Join([]string{
			b.ID, b.MinIncome.String(), maxIncome, b.Rate.String(),
			b.EffectiveFrom.UTC().Format(time.RFC3339), effectiveTo,
		}, "|"))
	}
	return uuid.NewSHA1(bracketSetNamespace, []byte(strings.Join(parts, ";"))).String()
}
