package league

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/prochartist/backend/core"
)

type Trader struct {
	Rank   int     `json:"rank" bson:"rank" validate:"gte=0"`
	Name   string  `json:"name" bson:"name" validate:"required"`
	Trades int     `json:"trades" bson:"trades" validate:"gte=0"`
	ROI    float64 `json:"roi" bson:"roi"`
}

type CurrentLeague struct {
	StartDate       string   `json:"startDate" bson:"startDate" validate:"omitempty,isodate"`
	NextLeagueStart string   `json:"nextLeagueStart" bson:"nextLeagueStart" validate:"omitempty,isodate"`
	Participants    int      `json:"participants" bson:"participants" validate:"gte=0"`
	Traders         []Trader `json:"traders" bson:"traders" validate:"dive"`
}

type PreviousLeague struct {
	StartDate string   `json:"startDate" bson:"startDate" validate:"omitempty,isodate"`
	Traders   []Trader `json:"traders" bson:"traders" validate:"dive"`
}

// TopTrader is an entry of the all-time leaderboard, edited independently of leagues.
type TopTrader struct {
	Date string  `json:"date" bson:"date" validate:"omitempty,isodate"`
	Name string  `json:"name" bson:"name" validate:"required"`
	ROI  float64 `json:"roi" bson:"roi"`
}

// League is the singleton record holding the standings.
type League struct {
	CurrentLeague  CurrentLeague  `json:"currentLeague" bson:"currentLeague"`
	PreviousLeague PreviousLeague `json:"previousLeague" bson:"previousLeague"`
	TopTraders     []TopTrader    `json:"topTraders" bson:"topTraders"`
	UpdatedAt      time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// UpdateLeague replaces the current league and, when given, the previous one.
type UpdateLeague struct {
	CurrentLeague  *CurrentLeague  `json:"currentLeague" validate:"required"`
	PreviousLeague *PreviousLeague `json:"previousLeague"`
}

func (ul *UpdateLeague) Validate(validate *validator.Validate) error {
	if ul.CurrentLeague != nil {
		cleanTraders(ul.CurrentLeague.Traders)
	}
	if ul.PreviousLeague != nil {
		cleanTraders(ul.PreviousLeague.Traders)
	}
	return validate.Struct(ul)
}

type UpdateTopTraders struct {
	TopTraders []TopTrader `json:"topTraders" validate:"dive"`
}

func (ut *UpdateTopTraders) Validate(validate *validator.Validate) error {
	for i := range ut.TopTraders {
		ut.TopTraders[i].Name = core.CleanString(ut.TopTraders[i].Name)
	}
	return validate.Struct(ut)
}

func cleanTraders(traders []Trader) {
	for i := range traders {
		traders[i].Name = core.CleanString(traders[i].Name)
	}
}
