package service

import (
	"math"

	"github.com/cds-rules-server/internal/domain"
)

// thresholdBand is one rung of a classification ladder. A band covers
// values strictly below Upper; a nil Upper closes the ladder at +Inf. Bands
// in ascending order therefore partition the number line with no gap and no
// overlap: every finite value maps to exactly one category.
type thresholdBand struct {
	Category string
	Upper    *float64
	Severity domain.Priority
}

// thresholdLadder classifies one analyte's numeric value.
type thresholdLadder struct {
	Normal string
	Bands  []thresholdBand
}

// Classify returns the single category a value falls into.
func (l thresholdLadder) Classify(v float64) string {
	for _, band := range l.Bands {
		if band.Upper != nil && v < *band.Upper {
			return band.Category
		}
		if band.Upper == nil {
			return band.Category
		}
	}
	// Unreachable when the ladder is well-formed (last band open-ended);
	// guarded for malformed static data.
	return l.Bands[len(l.Bands)-1].Category
}

// Severity returns the priority attached to a category, defaulting to low.
func (l thresholdLadder) Severity(category string) domain.Priority {
	for _, band := range l.Bands {
		if band.Category == category {
			return band.Severity
		}
	}
	return domain.LOW_PRIORITY
}

// wellFormed reports whether bands are in strictly ascending order and the
// ladder is closed at +Inf. Checked by tests against every static ladder.
func (l thresholdLadder) wellFormed() bool {
	if len(l.Bands) == 0 {
		return false
	}
	prev := math.Inf(-1)
	for i, band := range l.Bands {
		last := i == len(l.Bands)-1
		if band.Upper == nil {
			return last
		}
		if *band.Upper <= prev {
			return false
		}
		prev = *band.Upper
	}
	return false
}

func up(v float64) *float64 { return &v }

// Category labels shared across ladders.
const (
	catNormal         = "NORMAL"
	catOptimal        = "OPTIMAL"
	catLow            = "LOW"
	catHigh           = "HIGH"
	catCriticalLow    = "CRITICAL_LOW"
	catCriticalHigh   = "CRITICAL_HIGH"
	catBorderlineHigh = "BORDERLINE_HIGH"
	catVeryHigh       = "VERY_HIGH"
	catDeficient      = "DEFICIENT"
	catInsufficient   = "INSUFFICIENT"
	catPrediabetes    = "PREDIABETES"
	catDiabetes       = "DIABETES"
)

// Fixed ladders. Units follow conventional US reporting: mg/dL for lipids
// and glucose, percent for HbA1c, mL/min/1.73m2 for eGFR.

var hba1cLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catNormal, Upper: up(5.7), Severity: domain.LOW_PRIORITY},
		{Category: catPrediabetes, Upper: up(6.5), Severity: domain.MEDIUM_PRIORITY},
		{Category: catDiabetes, Upper: nil, Severity: domain.HIGH_PRIORITY},
	},
}

var ldlLadder = thresholdLadder{
	Normal: catOptimal,
	Bands: []thresholdBand{
		{Category: catOptimal, Upper: up(130), Severity: domain.LOW_PRIORITY},
		{Category: catBorderlineHigh, Upper: up(160), Severity: domain.MEDIUM_PRIORITY},
		{Category: catHigh, Upper: up(190), Severity: domain.HIGH_PRIORITY},
		{Category: catVeryHigh, Upper: nil, Severity: domain.CRITICAL_PRIORITY},
	},
}

var totalCholesterolLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catNormal, Upper: up(200), Severity: domain.LOW_PRIORITY},
		{Category: catBorderlineHigh, Upper: up(240), Severity: domain.MEDIUM_PRIORITY},
		{Category: catHigh, Upper: nil, Severity: domain.HIGH_PRIORITY},
	},
}

var triglycerideLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catNormal, Upper: up(150), Severity: domain.LOW_PRIORITY},
		{Category: catBorderlineHigh, Upper: up(200), Severity: domain.MEDIUM_PRIORITY},
		{Category: catHigh, Upper: up(500), Severity: domain.HIGH_PRIORITY},
		{Category: catVeryHigh, Upper: nil, Severity: domain.CRITICAL_PRIORITY},
	},
}

var fastingGlucoseLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catCriticalLow, Upper: up(54), Severity: domain.CRITICAL_PRIORITY},
		{Category: catLow, Upper: up(70), Severity: domain.HIGH_PRIORITY},
		{Category: catNormal, Upper: up(100), Severity: domain.LOW_PRIORITY},
		{Category: catPrediabetes, Upper: up(126), Severity: domain.MEDIUM_PRIORITY},
		{Category: catDiabetes, Upper: nil, Severity: domain.HIGH_PRIORITY},
	},
}

var egfrLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: "KIDNEY_FAILURE", Upper: up(15), Severity: domain.CRITICAL_PRIORITY},
		{Category: "SEVERE_REDUCTION", Upper: up(30), Severity: domain.CRITICAL_PRIORITY},
		{Category: "MODERATE_REDUCTION", Upper: up(60), Severity: domain.HIGH_PRIORITY},
		{Category: "MILD_REDUCTION", Upper: up(90), Severity: domain.MEDIUM_PRIORITY},
		{Category: catNormal, Upper: nil, Severity: domain.LOW_PRIORITY},
	},
}

var tshLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catLow, Upper: up(0.4), Severity: domain.HIGH_PRIORITY},
		{Category: catNormal, Upper: up(4.5), Severity: domain.LOW_PRIORITY},
		{Category: catHigh, Upper: up(10), Severity: domain.MEDIUM_PRIORITY},
		{Category: catCriticalHigh, Upper: nil, Severity: domain.HIGH_PRIORITY},
	},
}

var vitaminDLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catDeficient, Upper: up(20), Severity: domain.HIGH_PRIORITY},
		{Category: catInsufficient, Upper: up(30), Severity: domain.MEDIUM_PRIORITY},
		{Category: catNormal, Upper: nil, Severity: domain.LOW_PRIORITY},
	},
}

var altLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catNormal, Upper: up(56), Severity: domain.LOW_PRIORITY},
		{Category: catHigh, Upper: up(168), Severity: domain.MEDIUM_PRIORITY},
		{Category: catCriticalHigh, Upper: nil, Severity: domain.CRITICAL_PRIORITY},
	},
}

var calciumLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catCriticalLow, Upper: up(7.0), Severity: domain.CRITICAL_PRIORITY},
		{Category: catLow, Upper: up(8.5), Severity: domain.MEDIUM_PRIORITY},
		{Category: catNormal, Upper: up(10.5), Severity: domain.LOW_PRIORITY},
		{Category: catHigh, Upper: up(13.0), Severity: domain.HIGH_PRIORITY},
		{Category: catCriticalHigh, Upper: nil, Severity: domain.CRITICAL_PRIORITY},
	},
}

var albuminLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catCriticalLow, Upper: up(2.5), Severity: domain.CRITICAL_PRIORITY},
		{Category: catLow, Upper: up(3.5), Severity: domain.MEDIUM_PRIORITY},
		{Category: catNormal, Upper: nil, Severity: domain.LOW_PRIORITY},
	},
}

var plateletLadder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catCriticalLow, Upper: up(50), Severity: domain.CRITICAL_PRIORITY},
		{Category: catLow, Upper: up(150), Severity: domain.MEDIUM_PRIORITY},
		{Category: catNormal, Upper: up(450), Severity: domain.LOW_PRIORITY},
		{Category: catHigh, Upper: up(1000), Severity: domain.MEDIUM_PRIORITY},
		{Category: catCriticalHigh, Upper: nil, Severity: domain.CRITICAL_PRIORITY},
	},
}

var b12Ladder = thresholdLadder{
	Normal: catNormal,
	Bands: []thresholdBand{
		{Category: catDeficient, Upper: up(200), Severity: domain.HIGH_PRIORITY},
		{Category: catInsufficient, Upper: up(300), Severity: domain.MEDIUM_PRIORITY},
		{Category: catNormal, Upper: nil, Severity: domain.LOW_PRIORITY},
	},
}

// Gender-specific ladders; selection requires demographics and missing
// gender is a hard error for these analytes.

func hdlLadder(gender domain.Gender) thresholdLadder {
	cutoff := 40.0
	if gender == domain.FEMALE {
		cutoff = 50.0
	}
	return thresholdLadder{
		Normal: catNormal,
		Bands: []thresholdBand{
			{Category: catLow, Upper: up(cutoff), Severity: domain.MEDIUM_PRIORITY},
			{Category: catNormal, Upper: nil, Severity: domain.LOW_PRIORITY},
		},
	}
}

func hemoglobinLadder(gender domain.Gender) thresholdLadder {
	low, high := 13.5, 17.5
	if gender == domain.FEMALE {
		low, high = 12.0, 15.5
	}
	return thresholdLadder{
		Normal: catNormal,
		Bands: []thresholdBand{
			{Category: catCriticalLow, Upper: up(7.0), Severity: domain.CRITICAL_PRIORITY},
			{Category: catLow, Upper: up(low), Severity: domain.MEDIUM_PRIORITY},
			{Category: catNormal, Upper: up(high), Severity: domain.LOW_PRIORITY},
			{Category: catHigh, Upper: nil, Severity: domain.MEDIUM_PRIORITY},
		},
	}
}

func ferritinLadder(gender domain.Gender) thresholdLadder {
	low, high := 24.0, 336.0
	if gender == domain.FEMALE {
		low, high = 11.0, 307.0
	}
	return thresholdLadder{
		Normal: catNormal,
		Bands: []thresholdBand{
			{Category: catLow, Upper: up(low), Severity: domain.MEDIUM_PRIORITY},
			{Category: catNormal, Upper: up(high), Severity: domain.LOW_PRIORITY},
			{Category: catHigh, Upper: nil, Severity: domain.MEDIUM_PRIORITY},
		},
	}
}

func creatinineLadder(gender domain.Gender) thresholdLadder {
	low, high := 0.7, 1.3
	if gender == domain.FEMALE {
		low, high = 0.6, 1.1
	}
	return thresholdLadder{
		Normal: catNormal,
		Bands: []thresholdBand{
			{Category: catLow, Upper: up(low), Severity: domain.LOW_PRIORITY},
			{Category: catNormal, Upper: up(high), Severity: domain.LOW_PRIORITY},
			{Category: catHigh, Upper: up(4.0), Severity: domain.HIGH_PRIORITY},
			{Category: catCriticalHigh, Upper: nil, Severity: domain.CRITICAL_PRIORITY},
		},
	}
}

func uricAcidLadder(gender domain.Gender) thresholdLadder {
	low, high := 3.4, 7.0
	if gender == domain.FEMALE {
		low, high = 2.4, 6.0
	}
	return thresholdLadder{
		Normal: catNormal,
		Bands: []thresholdBand{
			{Category: catLow, Upper: up(low), Severity: domain.LOW_PRIORITY},
			{Category: catNormal, Upper: up(high), Severity: domain.LOW_PRIORITY},
			{Category: catHigh, Upper: nil, Severity: domain.MEDIUM_PRIORITY},
		},
	}
}
