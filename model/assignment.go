package model

import "time"

// TravelSource tags how the travel times behind an assignment were obtained.
type TravelSource string

const (
	SourceExternalOptimizer TravelSource = "EXTERNAL_OPTIMIZER"
	SourceRoadNetworkTable  TravelSource = "ROAD_NETWORK_TABLE"
	SourceGreatCircle       TravelSource = "GREAT_CIRCLE"
)

// Assignment binds one order to one crew for one day, with the estimated
// timeline of the visit. Created once and never mutated.
type Assignment struct {
	Order      *ServiceOrder `json:"order"`
	CrewID     string        `json:"equipe"`
	Day        time.Time     `json:"dt_ref"`
	Arrival    time.Time     `json:"dth_chegada_estimada"`
	Finish     time.Time     `json:"dth_final_estimada"`
	BaseReturn time.Time     `json:"fim_turno_estimado"` // crew-level estimate, repeated per row
	TravelSecs int           `json:"td_sec"`
	Source     TravelSource  `json:"eta_source"`
}
