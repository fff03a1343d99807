package scoring_test

import (
	"testing"

	"github.com/maintiq/rmi/internal/domain/evidence"
	"github.com/maintiq/rmi/internal/domain/model"
	"github.com/maintiq/rmi/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func techQuestion(code string) model.Question {
	return model.Question{
		Code:       code,
		Pillar:     model.PillarPeople,
		TargetRole: "technician",
		Type:       model.TypeLikert,
	}
}

func response(code string, score float64) model.Response {
	return model.Response{
		AssessmentID: "a1",
		QuestionCode: code,
		NumericScore: model.Float(score),
	}
}

func TestEngine_SingleResponse(t *testing.T) {
	Convey("Given one technician Likert answer of 4 and nothing else", t, func() {
		e := scoring.New()
		questions := map[string]model.Question{"P-01": techQuestion("P-01")}
		responses := []model.Response{response("P-01", 4)}

		got := e.ScorePillar(model.PillarPeople, responses, questions, nil)

		Convey("Then the pillar scores 4.0 with low confidence", func() {
			So(got.NoData, ShouldBeFalse)
			So(got.FinalScore, ShouldEqual, 4.0)
			So(got.InterviewScore, ShouldEqual, 4.0)
			So(got.Confidence, ShouldEqual, "Low - Insufficient Data")
			So(got.ResponseCount, ShouldEqual, 1)
		})
	})
}

func TestEngine_NoData(t *testing.T) {
	Convey("Given a pillar with no eligible responses or observations", t, func() {
		e := scoring.New()

		Convey("When there is nothing at all", func() {
			got := e.ScorePillar(model.PillarTechnology, nil, nil, nil)
			So(got.NoData, ShouldBeTrue)
			So(got.Confidence, ShouldEqual, "No Data")
			So(got.FinalScore, ShouldEqual, 0.0)
		})

		Convey("When every response is a draft or N/A", func() {
			questions := map[string]model.Question{"T-01": {Code: "T-01", Pillar: model.PillarTechnology, Type: model.TypeLikert}}
			responses := []model.Response{
				{QuestionCode: "T-01", NumericScore: model.Float(5), IsDraft: true},
				{QuestionCode: "T-01", IsNA: true},
			}
			got := e.ScorePillar(model.PillarTechnology, responses, questions, nil)
			So(got.NoData, ShouldBeTrue)
		})

		Convey("When an observation has no pass/fail verdict it does not count as data", func() {
			obs := []model.Observation{{Pillar: model.PillarTechnology, Title: "CMMS walkthrough"}}
			got := e.ScorePillar(model.PillarTechnology, nil, nil, obs)
			So(got.NoData, ShouldBeTrue)
		})
	})
}

func TestEngine_RoleWeighting(t *testing.T) {
	Convey("Given the same question answered by different roles", t, func() {
		e := scoring.New()
		questions := map[string]model.Question{
			"P-01": {Code: "P-01", Pillar: model.PillarPeople, TargetRole: "technician"},
			"P-02": {Code: "P-02", Pillar: model.PillarPeople, TargetRole: "manager"},
		}
		responses := []model.Response{
			response("P-01", 4),
			response("P-02", 2),
		}

		got := e.ScorePillar(model.PillarPeople, responses, questions, nil)

		Convey("Then the technician answer dominates the weighted average", func() {
			// (0.60*4 + 0.20*2) / 0.80 = 3.5
			So(got.InterviewScore, ShouldEqual, 3.5)
			So(got.FinalScore, ShouldEqual, 3.5)
		})
	})

	Convey("Given a question targeting an unknown role", t, func() {
		e := scoring.New()
		questions := map[string]model.Question{
			"P-01": {Code: "P-01", Pillar: model.PillarPeople, TargetRole: "consultant"},
		}
		got := e.ScorePillar(model.PillarPeople, []model.Response{response("P-01", 4)}, questions, nil)

		Convey("Then the role carries the neutral weight of 1.0", func() {
			So(got.InterviewScore, ShouldEqual, 4.0)
		})
	})
}

func TestEngine_ObservationBlend(t *testing.T) {
	Convey("Given interviews and observations on the same pillar", t, func() {
		e := scoring.New()
		questions := map[string]model.Question{"PR-01": {Code: "PR-01", Pillar: model.PillarProcess, TargetRole: "technician"}}
		responses := []model.Response{{QuestionCode: "PR-01", NumericScore: model.Float(4)}}
		obs := []model.Observation{
			{Pillar: model.PillarProcess, Title: "Planned job kit staged", Type: "Work Execution", PassFail: model.Bool(true)},
			{Pillar: model.PillarProcess, Title: "Backlog unreviewed", Type: "Planning", PassFail: model.Bool(false)},
		}

		got := e.ScorePillar(model.PillarProcess, responses, questions, obs)

		Convey("Then the blend is 80/20 interview to observation", func() {
			// observation mean = (5+1)/2 = 3; 0.8*4 + 0.2*3 = 3.8
			So(got.ObservationScore, ShouldEqual, 3.0)
			So(got.FinalScore, ShouldEqual, 3.8)
			So(got.ObservationCount, ShouldEqual, 2)
		})
	})

	Convey("Given only observations", t, func() {
		e := scoring.New()
		obs := []model.Observation{
			{Pillar: model.PillarProcess, Title: "Kit staged", PassFail: model.Bool(true)},
		}
		got := e.ScorePillar(model.PillarProcess, nil, nil, obs)

		Convey("Then the observation score stands alone, undiluted", func() {
			So(got.FinalScore, ShouldEqual, 5.0)
		})
	})

	Convey("Given a blend override whose sum is within tolerance of 1", t, func() {
		e := scoring.New(scoring.WithBlend(0.7495, 0.25))
		questions := map[string]model.Question{"PR-01": {Code: "PR-01", Pillar: model.PillarProcess, TargetRole: "technician"}}
		responses := []model.Response{{QuestionCode: "PR-01", NumericScore: model.Float(4)}}
		obs := []model.Observation{
			{Pillar: model.PillarProcess, Title: "Kit staged", PassFail: model.Bool(true)},
		}

		got := e.ScorePillar(model.PillarProcess, responses, questions, obs)

		Convey("Then the override applies rather than the default blend", func() {
			// 0.7495*4 + 0.25*5 = 4.25 (rounded to two decimals)
			So(got.FinalScore, ShouldEqual, 4.25)
		})
	})

	Convey("Given a blend override whose sum is outside tolerance", t, func() {
		e := scoring.New(scoring.WithBlend(0.9, 0.3))
		questions := map[string]model.Question{"PR-01": {Code: "PR-01", Pillar: model.PillarProcess, TargetRole: "technician"}}
		responses := []model.Response{{QuestionCode: "PR-01", NumericScore: model.Float(4)}}
		obs := []model.Observation{
			{Pillar: model.PillarProcess, Title: "Kit staged", PassFail: model.Bool(true)},
		}

		got := e.ScorePillar(model.PillarProcess, responses, questions, obs)

		Convey("Then the pair is ignored and the default 80/20 blend holds", func() {
			// 0.8*4 + 0.2*5 = 4.2
			So(got.FinalScore, ShouldEqual, 4.2)
		})
	})
}

func TestEngine_CriticalCap(t *testing.T) {
	Convey("Given nine excellent answers and one failed critical question", t, func() {
		e := scoring.New()
		questions := map[string]model.Question{}
		responses := make([]model.Response, 0, 10)
		for i := 0; i < 9; i++ {
			code := string(rune('A' + i))
			questions[code] = techQuestion(code)
			responses = append(responses, response(code, 5))
		}
		questions["P-CRIT"] = model.Question{
			Code: "P-CRIT", Pillar: model.PillarPeople, TargetRole: "technician",
			Text: "Is lockout/tagout always followed?", IsCritical: true,
		}
		responses = append(responses, response("P-CRIT", 1))

		got := e.ScorePillar(model.PillarPeople, responses, questions, nil)

		Convey("Then the raw average survives but the final score is capped at 3", func() {
			So(got.RawScore, ShouldEqual, 4.6)
			So(got.FinalScore, ShouldEqual, 3.0)
			So(got.CriticalFailures, ShouldHaveLength, 1)
			So(got.CriticalFailures[0].QuestionCode, ShouldEqual, "P-CRIT")
		})

		Convey("Then a final below the cap is left untouched", func() {
			for i := range responses[:9] {
				responses[i].NumericScore = model.Float(2)
			}
			low := e.ScorePillar(model.PillarPeople, responses, questions, nil)
			So(low.FinalScore, ShouldBeLessThan, 3.0)
			So(low.FinalScore, ShouldEqual, low.RawScore)
		})
	})

	Convey("Given a critical question answered N/A", t, func() {
		e := scoring.New()
		questions := map[string]model.Question{
			"P-01":   techQuestion("P-01"),
			"P-CRIT": {Code: "P-CRIT", Pillar: model.PillarPeople, TargetRole: "technician", IsCritical: true},
		}
		responses := []model.Response{
			response("P-01", 5),
			{QuestionCode: "P-CRIT", IsNA: true},
		}

		got := e.ScorePillar(model.PillarPeople, responses, questions, nil)

		Convey("Then it is excluded entirely and no cap fires", func() {
			So(got.FinalScore, ShouldEqual, 5.0)
			So(got.CriticalFailures, ShouldBeEmpty)
		})
	})
}

func TestEngine_SafetyObservationCap(t *testing.T) {
	failedSafety := model.Observation{
		Pillar: model.PillarProcess, Title: "Missing machine guard",
		Type: "Safety", PassFail: model.Bool(false),
	}

	Convey("Given a failed safety observation on the Process pillar", t, func() {
		e := scoring.New()
		questions := map[string]model.Question{"PR-01": {Code: "PR-01", Pillar: model.PillarProcess, TargetRole: "technician"}}
		responses := []model.Response{{QuestionCode: "PR-01", NumericScore: model.Float(5)}}

		got := e.ScorePillar(model.PillarProcess, responses, questions, []model.Observation{failedSafety})

		Convey("Then Process is capped at 3 and the failure is recorded", func() {
			So(got.FinalScore, ShouldEqual, 3.0)
			So(got.CriticalFailures, ShouldHaveLength, 1)
			So(got.CriticalFailures[0].Detail, ShouldContainSubstring, "Missing machine guard")
		})
	})

	Convey("Given the same failed safety observation on another pillar", t, func() {
		e := scoring.New()
		obs := failedSafety
		obs.Pillar = model.PillarPeople
		questions := map[string]model.Question{"P-01": techQuestion("P-01")}
		responses := []model.Response{response("P-01", 5)}

		got := e.ScorePillar(model.PillarPeople, responses, questions, []model.Observation{obs})

		Convey("Then the cap does not apply outside Process", func() {
			// 0.8*5 + 0.2*1 = 4.2
			So(got.FinalScore, ShouldEqual, 4.2)
		})
	})

	Convey("Given a passed safety observation", t, func() {
		e := scoring.New()
		obs := failedSafety
		obs.PassFail = model.Bool(true)
		questions := map[string]model.Question{"PR-01": {Code: "PR-01", Pillar: model.PillarProcess, TargetRole: "technician"}}
		responses := []model.Response{{QuestionCode: "PR-01", NumericScore: model.Float(5)}}

		got := e.ScorePillar(model.PillarProcess, responses, questions, []model.Observation{obs})

		Convey("Then no cap fires", func() {
			So(got.FinalScore, ShouldEqual, 5.0)
			So(got.CriticalFailures, ShouldBeEmpty)
		})
	})
}

func TestEngine_EvidenceGateInteraction(t *testing.T) {
	Convey("Given an unevidenced high score on a question requiring proof", t, func() {
		e := scoring.New(scoring.WithGate(evidence.New()))
		questions := map[string]model.Question{
			"P-01": {Code: "P-01", Pillar: model.PillarPeople, TargetRole: "technician", EvidenceRequired: true},
		}
		responses := []model.Response{response("P-01", 5)}

		got := e.ScorePillar(model.PillarPeople, responses, questions, nil)

		Convey("Then the gated score feeds aggregation, not the raw one", func() {
			So(got.InterviewScore, ShouldEqual, 3.0)
			So(got.EvidenceCoverage, ShouldEqual, 0.0)
		})
	})
}

func TestEngine_ConfidenceLabels(t *testing.T) {
	build := func(n int, evidenceRequired, evidenced bool) (map[string]model.Question, []model.Response) {
		questions := map[string]model.Question{}
		responses := make([]model.Response, 0, n)
		for i := 0; i < n; i++ {
			code := string(rune('A' + i))
			questions[code] = model.Question{
				Code: code, Pillar: model.PillarPeople, TargetRole: "technician",
				EvidenceRequired: evidenceRequired,
			}
			responses = append(responses, model.Response{
				QuestionCode: code, NumericScore: model.Float(3), EvidenceProvided: evidenced,
			})
		}
		return questions, responses
	}

	Convey("Given varying sample sizes and evidence coverage", t, func() {
		e := scoring.New()

		Convey("Fewer than three responses is always low confidence", func() {
			q, r := build(2, true, true)
			So(e.ScorePillar(model.PillarPeople, r, q, nil).Confidence, ShouldEqual, "Low - Insufficient Data")
		})

		Convey("Coverage under half is limited evidence", func() {
			q, r := build(4, true, false)
			So(e.ScorePillar(model.PillarPeople, r, q, nil).Confidence, ShouldEqual, "Medium - Limited Evidence")
		})

		Convey("Five well-evidenced responses is high confidence", func() {
			q, r := build(5, true, true)
			So(e.ScorePillar(model.PillarPeople, r, q, nil).Confidence, ShouldEqual, "High - Well Evidenced")
		})

		Convey("Four evidenced responses land in the middle", func() {
			q, r := build(4, true, true)
			So(e.ScorePillar(model.PillarPeople, r, q, nil).Confidence, ShouldEqual, "Medium - Adequate")
		})

		Convey("No evidence requirements means full coverage", func() {
			q, r := build(3, false, false)
			got := e.ScorePillar(model.PillarPeople, r, q, nil)
			So(got.EvidenceCoverage, ShouldEqual, 100.0)
		})
	})
}

func TestEngine_Combine(t *testing.T) {
	Convey("Given three pillar results", t, func() {
		e := scoring.New()
		results := map[model.Pillar]model.PillarResult{
			model.PillarPeople:     {Pillar: model.PillarPeople, FinalScore: 2.0},
			model.PillarProcess:    {Pillar: model.PillarProcess, FinalScore: 3.0},
			model.PillarTechnology: {Pillar: model.PillarTechnology, FinalScore: 4.0},
		}

		Convey("Then the overall RMI is the unweighted mean", func() {
			overall, level := e.Combine(results)
			So(overall, ShouldEqual, 3.0)
			So(level, ShouldEqual, "Level 3 - Preventive")
		})

		Convey("Then band boundaries classify correctly", func() {
			cases := []struct {
				score float64
				level string
			}{
				{1.9, "Level 1 - Reactive"},
				{2.0, "Level 2 - Emerging Preventive"},
				{3.0, "Level 3 - Preventive"},
				{4.0, "Level 4 - Predictive"},
				{4.5, "Level 5 - Prescriptive"},
			}
			for _, c := range cases {
				for _, p := range model.Pillars() {
					r := results[p]
					r.FinalScore = c.score
					results[p] = r
				}
				_, level := e.Combine(results)
				So(level, ShouldEqual, c.level)
			}
		})
	})
}

func TestEngine_OverallConfidence(t *testing.T) {
	mk := func(people, process, technology string) map[model.Pillar]model.PillarResult {
		return map[model.Pillar]model.PillarResult{
			model.PillarPeople:     {Confidence: people},
			model.PillarProcess:    {Confidence: process},
			model.PillarTechnology: {Confidence: technology},
		}
	}

	Convey("Given per-pillar confidence labels", t, func() {
		Convey("All high yields High", func() {
			So(scoring.OverallConfidence(mk("High - Well Evidenced", "High - Well Evidenced", "High - Well Evidenced")), ShouldEqual, "High")
		})

		Convey("Any low yields Low", func() {
			So(scoring.OverallConfidence(mk("High - Well Evidenced", "Low - Insufficient Data", "High - Well Evidenced")), ShouldEqual, "Low")
		})

		Convey("A missing pillar yields Low", func() {
			So(scoring.OverallConfidence(mk("High - Well Evidenced", "No Data", "High - Well Evidenced")), ShouldEqual, "Low")
		})

		Convey("Anything else yields Medium", func() {
			So(scoring.OverallConfidence(mk("High - Well Evidenced", "Medium - Adequate", "High - Well Evidenced")), ShouldEqual, "Medium")
		})
	})
}

func TestEngine_ScoreRange(t *testing.T) {
	Convey("Given extreme inputs the pillar score stays within [0, 5]", t, func() {
		e := scoring.New()
		questions := map[string]model.Question{
			"X": {Code: "X", Pillar: model.PillarPeople, TargetRole: "technician", Weight: 3.0},
		}

		high := e.ScorePillar(model.PillarPeople, []model.Response{response("X", 5)}, questions, []model.Observation{
			{Pillar: model.PillarPeople, PassFail: model.Bool(true)},
		})
		So(high.FinalScore, ShouldBeLessThanOrEqualTo, 5.0)

		low := e.ScorePillar(model.PillarPeople, []model.Response{response("X", 1)}, questions, []model.Observation{
			{Pillar: model.PillarPeople, PassFail: model.Bool(false)},
		})
		So(low.FinalScore, ShouldBeGreaterThanOrEqualTo, 0.0)
	})
}
