package trialbalance

// Banner tones used by templates to pick the banner colour.
const (
	ToneBalanced   = "balanced"
	ToneUnbalanced = "unbalanced"
)

// Banner summarises the report totals and the server verdict.
type Banner struct {
	Balanced    bool
	Label       string
	Tone        string
	TotalDebit  string
	TotalCredit string
}

// Row is one rendered table row.
type Row struct {
	Key     string
	Striped bool
	LineCells
}

// ViewModel drives both the HTML page and the CLI table.
type ViewModel struct {
	Title              string
	ShowSpinner        bool
	Banner             Banner
	Rows               []Row
	Error              string
	NotificationMillis int64
}

// NewViewModel maps a view-state to what is displayed. It never recomputes
// totals or the balanced verdict and keeps rows in received order.
func NewViewModel(s State) ViewModel {
	vm := ViewModel{
		Title:              "Trial Balance",
		ShowSpinner:        s.Loading,
		Banner:             newBanner(s.Report),
		Error:              s.Error,
		NotificationMillis: NotificationTTL.Milliseconds(),
	}
	vm.Rows = make([]Row, len(s.Report.Balances))
	for i, line := range s.Report.Balances {
		vm.Rows[i] = Row{
			Key:       line.Account,
			Striped:   i%2 == 0,
			LineCells: line.Cells(),
		}
	}
	return vm
}

func newBanner(r Report) Banner {
	b := Banner{
		Balanced:    r.Balanced,
		Label:       "Books are NOT balanced",
		Tone:        ToneUnbalanced,
		TotalDebit:  r.TotalDebit.String(),
		TotalCredit: r.TotalCredit.String(),
	}
	if r.Balanced {
		b.Label = "Books are balanced"
		b.Tone = ToneBalanced
	}
	return b
}
