package trigger

// Global reads keys system-wide, outside any window or terminal focus,
// and dispatches them onto a Surface.
type Global interface {
	Start(s *Surface) error
	Stop()
	// Skipped lists the requested keys this source cannot deliver.
	Skipped() []string
}
