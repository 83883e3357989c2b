package catalog

import (
	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/model"
)

// Recommendation table colours.
const (
	colorMandatory = "text-bg-success"
	colorBooster   = "text-bg-warning"
	colorOptional  = "text-bg-info"
)

// boxes builds a recommendation table row. Positive spans are filled cells,
// negative spans are empty ones.
func boxes(color string, spans ...int) model.Option {
	out := make([]model.DisplayBox, 0, len(spans))
	for _, s := range spans {
		if s < 0 {
			out = append(out, model.DisplayBox{Span: -s})
			continue
		}
		out = append(out, model.DisplayBox{Filled: true, Span: s, Color: color})
	}
	return model.WithDisplayBoxes(out...)
}

// Free returns the government-funded schedule.
func Free(ids *model.IDSource) []*model.Vaccine {
	return []*model.Vaccine{
		model.New(ids, "BCG",
			model.WithDisease("Tuberculosis"),
			model.WithOffsets(0),
			model.WithSelected(true),
			boxes(colorMandatory, 1, -10)),
		model.New(ids, "HBV",
			model.WithDisease("Hepatitis B"),
			model.WithOffsets(0, 42, 180),
			model.WithSelected(true),
			boxes(colorMandatory, 3, -8)),
		model.New(ids, "DTPw",
			model.WithDisease("Diphtheria, tetanus, pertussis (whole-cell)"),
			model.WithOffsets(42, 102, 162, 480),
			model.WithVariantNames("DTPw 1", "DTPw 2", "DTPw 3", "DTPw booster"),
			model.WithSelected(true),
			boxes(colorMandatory, -1, 3, -1, 1, -5)),
		model.New(ids, "IPV",
			model.WithDisease("Poliomyelitis"),
			model.WithOffsets(102, 162, 480, 2190),
			model.WithSelected(true),
			boxes(colorMandatory, -2, 2, -1, 1, -1, 1, -3)),
		model.New(ids, "Hib",
			model.WithDisease("Haemophilus influenzae type b"),
			model.WithOffsets(42, 102, 162, 480),
			model.WithSelected(true),
			boxes(colorMandatory, -1, 3, -1, 1, -5)),
		model.New(ids, "PCV",
			model.WithDisease("Pneumococcal disease"),
			model.WithOffsets(42, 102, 395),
			model.WithSelected(true),
			boxes(colorMandatory, -1, 2, -2, 1, -5)),
		model.New(ids, "MMR",
			model.WithDisease("Measles, mumps, rubella"),
			model.WithOffsets(395, 2190),
			model.WithSelected(true),
			boxes(colorMandatory, -5, 1, -1, 1, -3)),
		model.New(ids, "RV",
			model.WithDisease("Rotavirus"),
			model.WithOffsets(42, 84, 126),
			boxes(colorOptional, -1, 2, -8)),
		model.New(ids, "DTaP",
			model.WithDisease("Diphtheria, tetanus, pertussis (acellular)"),
			model.WithOffsets(2190),
			model.WithSelected(true),
			boxes(colorBooster, -7, 1, -3)),
		model.New(ids, "dTpa",
			model.WithDisease("Diphtheria, tetanus, pertussis (reduced antigen)"),
			model.WithOffsets(5110),
			model.WithSelected(true),
			boxes(colorBooster, -9, 1, -1)),
		model.New(ids, "Td",
			model.WithDisease("Diphtheria, tetanus"),
			model.WithOffsets(6935),
			model.WithSelected(true),
			boxes(colorBooster, -10, 1)),
	}
}

// MMRCutoff splits children between the older MMR schedule, with the second
// dose at ten years, and the current one with the second dose at six.
var MMRCutoff = calendar.MustParse("2019-01-01")

// Hexavalent returns the schedule built around the 6-in-1 DTaP-IPV-Hib-HBV
// combination. Selecting the combination deselects the separate shots it
// covers. The MMR schedule follows the submitted date of birth. MenB is
// pushed back two weeks when given alongside PCV.
func Hexavalent(ids *model.IDSource) []*model.Vaccine {
	bcg := model.New(ids, "BCG",
		model.WithDisease("Tuberculosis"),
		model.WithOffsets(0),
		model.WithSelected(true),
		boxes(colorMandatory, 1, -10))
	hbvBirth := model.New(ids, "HBV",
		model.WithDisease("Hepatitis B"),
		model.WithOffsets(0),
		model.WithVariantNames("HBV birth dose"),
		model.WithSelected(true),
		boxes(colorMandatory, 1, -10))
	hbv := model.New(ids, "HBV series",
		model.WithDisease("Hepatitis B"),
		model.WithOffsets(42, 180),
		boxes(colorMandatory, -1, 1, -1, 1, -7))
	ipv := model.New(ids, "IPV",
		model.WithDisease("Poliomyelitis"),
		model.WithOffsets(102, 162, 480),
		boxes(colorMandatory, -2, 2, -1, 1, -5))
	hib := model.New(ids, "Hib",
		model.WithDisease("Haemophilus influenzae type b"),
		model.WithOffsets(42, 102, 162, 480),
		boxes(colorMandatory, -1, 3, -1, 1, -5))
	dtap := model.New(ids, "DTaP",
		model.WithDisease("Diphtheria, tetanus, pertussis (acellular)"),
		model.WithOffsets(42, 102, 162, 480, 2190),
		boxes(colorMandatory, -1, 3, -1, 1, -1, 1, -3))
	hexa := model.New(ids, "DTaP-IPV-Hib-HBV",
		model.WithDisease("Diphtheria, tetanus, pertussis, poliomyelitis, Hib, hepatitis B"),
		model.WithOffsets(42, 102, 162, 480),
		model.WithVariantNames("6-in-1 dose 1", "6-in-1 dose 2", "6-in-1 dose 3", "6-in-1 booster"),
		boxes(colorMandatory, -1, 3, -1, 1, -5))
	pcv := model.New(ids, "PCV",
		model.WithDisease("Pneumococcal disease"),
		model.WithOffsets(42, 102, 395),
		model.WithSelected(true),
		boxes(colorMandatory, -1, 2, -2, 1, -5))
	menb := model.New(ids, "MenB",
		model.WithDisease("Meningococcal group B"),
		model.WithOffsets(56, 112, 395),
		boxes(colorOptional, -1, 2, -2, 1, -5))
	mmr := model.New(ids, "MMR",
		model.WithDisease("Measles, mumps, rubella"),
		model.WithOffsets(395, 2190),
		model.WithSelected(true),
		boxes(colorMandatory, -5, 1, -1, 1, -3))
	rv := model.New(ids, "RV",
		model.WithDisease("Rotavirus"),
		model.WithOffsets(42, 84, 126),
		boxes(colorOptional, -1, 2, -8))
	dtpa := model.New(ids, "dTpa",
		model.WithDisease("Diphtheria, tetanus, pertussis (reduced antigen)"),
		model.WithOffsets(5110),
		model.WithSelected(true),
		boxes(colorBooster, -9, 1, -1))

	Replaces(hexa, hbv, ipv, hib, dtap)
	DelayWhen(menb, pcv, 14)
	BornBefore(mmr, MMRCutoff, []int{395, 3650}, []int{395, 2190})

	// Hooks are wired before the combination is selected so the separate
	// shots start out deselected.
	for _, v := range []*model.Vaccine{hbv, ipv, hib, dtap} {
		_ = v.SetSelected(true)
	}
	_ = hexa.SetSelected(true)

	return []*model.Vaccine{bcg, hbvBirth, hexa, hbv, ipv, hib, dtap, pcv, menb, mmr, rv, dtpa}
}

// Demo returns a fixed set of definitions used for demonstrations and UI
// work. Every other definition starts selected.
func Demo(ids *model.IDSource) []*model.Vaccine {
	offsets := [][]int{
		{0, 5, 10, 15},
		{0, 3, 9, 17, 25},
		{2, 4, 6, 100, 2000},
		{10, 365},
		{7},
	}
	out := make([]*model.Vaccine, 0, len(offsets))
	for i, o := range offsets {
		out = append(out, model.New(ids, demoName(i),
			model.WithDisease("Demo disease "+demoName(i)),
			model.WithOffsets(o...),
			model.WithSelected(i%2 == 0),
			boxes(colorOptional, len(o), -(11-len(o)))))
	}
	return out
}

func demoName(i int) string { return "Demo " + string(rune('A'+i)) }
