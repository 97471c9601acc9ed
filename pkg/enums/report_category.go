package enums

import "fmt"

// ReportCategory classifies the kind of civic issue being reported.
type ReportCategory string

const (
	ReportCategoryRoad         ReportCategory = "road"
	ReportCategoryWater        ReportCategory = "water"
	ReportCategoryElectricity  ReportCategory = "electricity"
	ReportCategoryCleanliness  ReportCategory = "cleanliness"
	ReportCategoryStreetlight  ReportCategory = "streetlight"
	ReportCategoryDrainage     ReportCategory = "drainage"
	ReportCategoryTraffic      ReportCategory = "traffic"
	ReportCategoryNoise        ReportCategory = "noise"
	ReportCategoryConstruction ReportCategory = "construction"
	ReportCategorySafety       ReportCategory = "safety"
	ReportCategoryOther        ReportCategory = "other"
)

var validReportCategories = []ReportCategory{
	ReportCategoryRoad,
	ReportCategoryWater,
	ReportCategoryElectricity,
	ReportCategoryCleanliness,
	ReportCategoryStreetlight,
	ReportCategoryDrainage,
	ReportCategoryTraffic,
	ReportCategoryNoise,
	ReportCategoryConstruction,
	ReportCategorySafety,
	ReportCategoryOther,
}

// String implements fmt.Stringer.
func (c ReportCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ReportCategory.
func (c ReportCategory) IsValid() bool {
	for _, candidate := range validReportCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseReportCategory converts raw input into a ReportCategory.
func ParseReportCategory(value string) (ReportCategory, error) {
	for _, candidate := range validReportCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report category %q", value)
}
