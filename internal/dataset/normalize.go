package dataset

import "github.com/rail-timetable/collector/internal/tago"

// UnknownTrainType is used when the source omits a grade name
const UnknownTrainType = "기타"

// Normalize converts a raw API record into the canonical schedule shape.
// Temporal order is not checked: a trip crossing midnight has depTime > arrTime.
func Normalize(raw tago.RawSchedule) Schedule {
	trainType := raw.TrainGradeName
	if trainType == "" {
		trainType = UnknownTrainType
	}

	var charge int64
	if v, ok := raw.AdultCharge.Int(); ok && v > 0 {
		charge = v
	}

	return Schedule{
		TrainNo:   raw.TrainNo.String(),
		TrainType: trainType,
		DepTime:   FormatTime(raw.DepPlandTime.String()),
		ArrTime:   FormatTime(raw.ArrPlandTime.String()),
		Charge:    charge,
	}
}

// NormalizeAll converts a probe response
func NormalizeAll(raws []tago.RawSchedule) []Schedule {
	out := make([]Schedule, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

// FormatTime turns a YYYYMMDDHHmm[ss] numeral into HH:MM. Values shorter
// than 12 characters yield "".
func FormatTime(numeral string) string {
	if len(numeral) < 12 {
		return ""
	}
	return numeral[8:10] + ":" + numeral[10:12]
}
