package model

import "time"

// ServiceType distinguishes the two order streams handled by the engine.
type ServiceType string

const (
	ServiceTechnical  ServiceType = "tecnico"
	ServiceCommercial ServiceType = "comercial"
)

// ServiceOrder is one unit of field work (an "OS"), uniquely identified by
// NumOS. It is created by the loader and consumed at most once by the engine.
type ServiceOrder struct {
	NumOS        int64       `json:"numos"`
	Type         ServiceType `json:"tipo_serv"`
	Location     Point       `json:"location"`
	RequestedAt  time.Time   `json:"data_sol"`
	Deadline     time.Time   `json:"data_venc,omitempty"` // commercial only; zero when absent
	ExecMinutes  float64     `json:"te"`                  // TE, execution minutes
	ExtraMinutes float64     `json:"td"`                  // TD, extra minutes
	EUSD         float64     `json:"eusd"`
	ServiceCode  int         `json:"codserv,omitempty"`

	// Pre-computed weighting inputs; the loader leaves the defaults in
	// place when the source tables do not carry them.
	Priority       float64 `json:"prioridade"`
	Violation      float64 `json:"violacao"`
	WaitingMinutes float64 `json:"tempo_espera"`
}

// ServiceSeconds returns the on-site duration TE+TD in whole seconds.
func (o *ServiceOrder) ServiceSeconds() int {
	m := o.ExecMinutes + o.ExtraMinutes
	if m < 0 {
		m = 0
	}
	return int(m * 60)
}

// HasDeadline reports whether a regulatory due date is set.
func (o *ServiceOrder) HasDeadline() bool { return !o.Deadline.IsZero() }

// Usable reports whether the order can be routed at all: it needs valid
// coordinates and a known request time.
func (o *ServiceOrder) Usable() bool {
	return o.Location.Valid() && !o.RequestedAt.IsZero()
}
