package models

// Stats accumulates the counters of one import run.
type Stats struct {
	Skipped         int `yaml:"skipped"`
	NewTransactions int `yaml:"new_transactions"`
	NewTransfers    int `yaml:"new_transfers"`
	NewCategories   int `yaml:"new_categories"`
	Errors          int `yaml:"errors"`
}

func (s *Stats) IncSkipped()      { s.Skipped++ }
func (s *Stats) IncTransactions() { s.NewTransactions++ }
func (s *Stats) IncTransfers()    { s.NewTransfers++ }
func (s *Stats) IncCategories()   { s.NewCategories++ }
func (s *Stats) IncErrors()       { s.Errors++ }

// TotalImported counts created transactions and transfers.
func (s *Stats) TotalImported() int {
	return s.NewTransactions + s.NewTransfers
}

// Failed reports whether the run must exit non-zero.
func (s *Stats) Failed() bool {
	return s.Errors > 0
}
