package netinfo

import (
	"strings"
	"sync"
	"time"

	"tunneldeck/internal/backend"
)

// Tri is a three-valued reachability fact.
type Tri int

const (
	Unknown Tri = iota
	Yes
	No
)

func (t Tri) String() string {
	switch t {
	case Yes:
		return "Yes"
	case No:
		return "No"
	default:
		return backend.NotAvailable
	}
}

// Snapshot is the current best-known set of network facts.
type Snapshot struct {
	PriorityInterface string
	LANIP             string
	GatewayReachable  Tri
	InternetReachable Tri
	DiagnosticLines   []string

	// UpdatedAt is the time of the last field update; zero after a reset.
	UpdatedAt time.Time
}

// Pending returns a snapshot with every field at its sentinel value.
func Pending() Snapshot {
	return Snapshot{
		PriorityInterface: backend.NotAvailable,
		LANIP:             backend.NotAvailable,
		GatewayReachable:  Unknown,
		InternetReachable: Unknown,
		DiagnosticLines:   []string{backend.NotAvailable},
	}
}

// IsPending reports whether no fact has been applied since the last reset.
func (s Snapshot) IsPending() bool {
	return s.UpdatedAt.IsZero()
}

// Store holds the shared snapshot. Each fact is replaced independently so a
// failure in one query never reverts another.
type Store struct {
	mu       sync.RWMutex
	snap     Snapshot
	onChange func()
	now      func() time.Time
}

// NewStore creates a store initialised to Pending. onChange, when non-nil, is
// called after every update, outside the lock.
func NewStore(onChange func()) *Store {
	return &Store{
		snap:     Pending(),
		onChange: onChange,
		now:      time.Now,
	}
}

// Snapshot returns a copy of the current facts.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.DiagnosticLines = append([]string(nil), s.snap.DiagnosticLines...)
	return out
}

// Reset puts every field back to its sentinel.
func (s *Store) Reset() {
	s.update(func(snap *Snapshot) {
		*snap = Pending()
	}, false)
}

// SetInterface records the priority interface and its LAN IP.
func (s *Store) SetInterface(name, ip string) {
	s.update(func(snap *Snapshot) {
		snap.PriorityInterface = name
		snap.LANIP = ip
	}, true)
}

// SetGateway records gateway reachability.
func (s *Store) SetGateway(t Tri) {
	s.update(func(snap *Snapshot) { snap.GatewayReachable = t }, true)
}

// SetInternet records Internet reachability.
func (s *Store) SetInternet(t Tri) {
	s.update(func(snap *Snapshot) { snap.InternetReachable = t }, true)
}

// SetDiagnostics records the diagnostic text lines.
func (s *Store) SetDiagnostics(lines []string) {
	lines = append([]string(nil), lines...)
	s.update(func(snap *Snapshot) { snap.DiagnosticLines = lines }, true)
}

func (s *Store) update(fn func(*Snapshot), stamp bool) {
	s.mu.Lock()
	fn(&s.snap)
	if stamp {
		s.snap.UpdatedAt = s.now()
	}
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange()
	}
}

// InterfaceFacts maps a get_priority_interface reply to (interface, LAN IP).
func InterfaceFacts(res backend.InterfaceResult) (name, ip string) {
	if !res.Success {
		return backend.NotAvailable, backend.NotAvailable
	}
	name, ip = res.Data, res.IP
	if name == "" {
		name = backend.NotAvailable
	}
	if ip == "" {
		ip = backend.NotAvailable
	}
	return name, ip
}

// Reachability maps a reachability reply to Yes or No. A failed call is No.
func Reachability(res backend.ReachabilityResult) Tri {
	if res.Reachable() {
		return Yes
	}
	return No
}

// DiagnosticLines splits the diagnostic text into lines. A failed or empty reply
// yields a single "N/A" line rather than an empty slice.
func DiagnosticLines(res backend.NetworkInfoResult) []string {
	if !res.Success {
		return []string{backend.NotAvailable}
	}
	text := strings.TrimSuffix(strings.ReplaceAll(res.Data, "\r\n", "\n"), "\n")
	if text == "" {
		return []string{backend.NotAvailable}
	}
	return strings.Split(text, "\n")
}
