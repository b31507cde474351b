package telemetry

// RailData is one row of an INA power-rail measurement table as printed by
// the board controller. Values are kept in the units the board prints them:
// shunt voltage in uV, rail voltage in V, current in mA and power in mW.
type RailData struct {
	Index        int     `json:"index"`
	RailName     string  `json:"rail_name"`
	ShuntVoltage float64 `json:"shunt_uv"`
	RailVoltage  float64 `json:"rail_v"`
	Current      float64 `json:"current_ma"`
	Power        float64 `json:"power_mw"`
}

// TotalPower sums the power column of the provided rows.
func TotalPower(rows []RailData) float64 {
	var total float64
	for _, r := range rows {
		total += r.Power
	}
	return total
}

// AveragePower returns the mean power across rows. ok is false when rows is
// empty.
func AveragePower(rows []RailData) (avg float64, ok bool) {
	if len(rows) == 0 {
		return 0, false
	}
	return TotalPower(rows) / float64(len(rows)), true
}

// Rail returns the first row measured on the named rail.
func Rail(rows []RailData, name string) (RailData, bool) {
	for _, r := range rows {
		if r.RailName == name {
			return r, true
		}
	}
	return RailData{}, false
}
