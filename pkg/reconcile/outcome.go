package reconcile

// PollOutcome is the result of one poll cycle
type PollOutcome int

const (
	// Suppressed means an undo or redo cooldown skipped the cycle
	Suppressed PollOutcome = iota
	// FetchFailed means the listing could not be fetched; nothing changed
	FetchFailed
	// Unchanged means the fingerprint matched the last cycle
	Unchanged
	// Empty means the vault listed no notes; the empty graph was adopted
	Empty
	// Applied means a changed listing was rebuilt and dispatched
	Applied
	// Stopped means the session was stopped before or during the cycle
	Stopped
	// Superseded means a local edit landed while the listing was in flight; the stale
	// listing was dropped and the next cycle rebuilds
	Superseded
)

func (o PollOutcome) String() string {
	switch o {
	case Suppressed:
		return "suppressed"
	case FetchFailed:
		return "fetch_failed"
	case Unchanged:
		return "unchanged"
	case Empty:
		return "empty"
	case Applied:
		return "applied"
	case Stopped:
		return "stopped"
	case Superseded:
		return "superseded"
	default:
		return "unknown"
	}
}
