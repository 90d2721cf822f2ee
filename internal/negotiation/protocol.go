package negotiation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dtorcivia/meetquorum/internal/oracle"
	"github.com/dtorcivia/meetquorum/internal/schedule"
	"github.com/dtorcivia/meetquorum/internal/util"
)

// Stage names recorded on results.
const (
	StageRequestedTime      = "requested_time"
	StageUrgentRetry        = "urgent_accommodation"
	StageAlternativeSearch  = "alternative_search"
	StageExtendedEscalation = "extended_urgent"
	StageFailed             = "failed"
)

// Request is one normalized negotiation request. Participants carry their
// calendars and preferences; Date is midnight of the target day in the
// negotiation's target timezone.
type Request struct {
	ID              string
	Participants    []*schedule.Participant
	Date            time.Time
	RequestedStart  *time.Time
	DurationMinutes int
	StrideMinutes   int
	Urgency         schedule.Urgency
	Context         string
}

// Result is the single outcome of one negotiation. It is produced exactly
// once per request; failure is a normal outcome, not an error.
type Result struct {
	Success        bool
	RequestID      string
	Slot           *schedule.TimeSlot
	Alternatives   []schedule.TimeSlot
	ConsensusScore float64
	Participants   int
	Urgency        schedule.Urgency
	Stage          string
	Reasoning      string
	FailureReason  string
	Trail          []string
}

// ProtocolConfig tunes the staged escalation.
type ProtocolConfig struct {
	// UrgentRetryThreshold is the accommodation fraction needed for the
	// urgent re-evaluation of a rejected requested time.
	UrgentRetryThreshold float64
	// EscalationThreshold is the participant fraction that must agree to
	// reschedule or go off-hours during extended escalation.
	EscalationThreshold float64
	// EscalationHour is the local hour of the synthesized early slot.
	EscalationHour int
	// AttachedAlternatives caps the alternatives carried on the result.
	AttachedAlternatives int
	// FanOut bounds concurrent per-participant evaluation.
	FanOut int
	// OracleMaxTokens bounds advisory completions.
	OracleMaxTokens int
}

// DefaultProtocolConfig mirrors the shipped configuration defaults.
var DefaultProtocolConfig = ProtocolConfig{
	UrgentRetryThreshold: 0.8,
	EscalationThreshold:  0.7,
	EscalationHour:       7,
	AttachedAlternatives: 3,
	FanOut:               4,
	OracleMaxTokens:      50,
}

// Protocol is the staged state machine that drives a negotiation to a
// terminal result. Stages run sequentially; only the per-participant work
// inside a stage is parallelized.
type Protocol struct {
	model     *DecisionModel
	consensus *ConsensusEngine
	orc       oracle.Oracle
	cfg       ProtocolConfig
}

// NewProtocol creates a protocol. The oracle is advisory only; a nil oracle
// disables advisory text and tie-break picks.
func NewProtocol(model *DecisionModel, consensus *ConsensusEngine, orc oracle.Oracle, cfg ProtocolConfig) *Protocol {
	if cfg.FanOut <= 0 {
		cfg.FanOut = DefaultProtocolConfig.FanOut
	}
	if cfg.AttachedAlternatives <= 0 {
		cfg.AttachedAlternatives = DefaultProtocolConfig.AttachedAlternatives
	}
	if cfg.OracleMaxTokens <= 0 {
		cfg.OracleMaxTokens = DefaultProtocolConfig.OracleMaxTokens
	}
	return &Protocol{model: model, consensus: consensus, orc: orc, cfg: cfg}
}

// Negotiate runs the escalation ladder and always returns a terminal
// result. A caller deadline aborts the whole negotiation with reason
// "timeout"; partial results are never returned.
func (p *Protocol) Negotiate(ctx context.Context, req *Request) *Result {
	trail := NewTrail()

	// Deterministic audit and aggregation order regardless of completion
	// order in the fan-out.
	participants := make([]*schedule.Participant, len(req.Participants))
	copy(participants, req.Participants)
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].Email < participants[j].Email
	})

	trail.Record("negotiator: analyzing %s priority request for %d participants on %s",
		req.Urgency, len(participants), req.Date.Format("2006-01-02"))

	if req.RequestedStart != nil {
		if p.expired(ctx) {
			return p.timeoutResult(req, trail)
		}

		slot := schedule.NewSlot(*req.RequestedStart, req.DurationMinutes)
		trail.Record("negotiator: evaluating requested time %s", slot.Start.Format("15:04"))

		decisions := p.evaluateAll(ctx, participants, slot, req.Urgency, trail)
		if countRejects(decisions) == 0 {
			trail.Record("negotiator: requested time works for everyone")
			return p.acceptedResult(req, trail, slot, meanScore(decisions), StageRequestedTime, nil)
		}

		if req.Urgency.Elevated() {
			if p.expired(ctx) {
				return p.timeoutResult(req, trail)
			}
			trail.Record("negotiator: attempting urgent accommodation of requested time")

			retry := p.evaluateAll(ctx, participants, slot, schedule.UrgencyUrgent, trail)
			frac := agreeableFraction(retry)
			if frac >= p.cfg.UrgentRetryThreshold {
				trail.Record("negotiator: achieved %.0f%% accommodation for urgent request", frac*100)
				return p.acceptedResult(req, trail, slot, frac, StageUrgentRetry, nil)
			}
			trail.Record("negotiator: urgent accommodation fell short at %.0f%%", frac*100)
		}
	}

	if p.expired(ctx) {
		return p.timeoutResult(req, trail)
	}

	trail.Record("negotiator: searching participant calendars for alternatives")
	candidates := p.collectCandidates(ctx, participants, req)
	for _, participant := range participants {
		trail.Record("%s: %d candidate slots", participant.Email, len(candidates[participant.Email]))
	}

	ranked := p.consensus.Intersect(participants, candidates, req.Urgency)
	trail.Record("negotiator: %d common slots after intersection", len(ranked))

	if len(ranked) > 0 {
		best := ranked[p.pickIndex(ctx, ranked)]
		trail.Record("negotiator: selected %s (overall score %.2f)", best.Start.Format("15:04"), best.OverallScore)

		// Confirmation round: always recorded, not vetoable at this tier.
		p.evaluateAll(ctx, participants, best, req.Urgency, trail)

		alternatives := alternativesBesides(ranked, best, p.cfg.AttachedAlternatives)
		return p.acceptedResult(req, trail, best, best.OverallScore, StageAlternativeSearch, alternatives)
	}

	// An empty intersection caused by the deadline lapsing mid-search is a
	// timeout, not a scheduling failure.
	if p.expired(ctx) {
		return p.timeoutResult(req, trail)
	}

	if req.Urgency.Elevated() {
		trail.Record("negotiator: no common slots - polling participants for extraordinary accommodation")
		agreed := p.pollAccommodations(ctx, participants, req, trail)
		if float64(agreed) >= p.cfg.EscalationThreshold*float64(len(participants)) {
			loc := req.Date.Location()
			y, m, d := req.Date.Date()
			start := time.Date(y, m, d, p.cfg.EscalationHour, 0, 0, 0, loc)
			slot := schedule.NewSlot(start, req.DurationMinutes)
			slot.ConsensusScore = 0.8

			trail.Record("negotiator: %d/%d participants agreed - synthesizing %02d:00 slot",
				agreed, len(participants), p.cfg.EscalationHour)
			return p.acceptedResult(req, trail, slot, 0.8, StageExtendedEscalation, nil)
		}
		trail.Record("negotiator: extended escalation found insufficient accommodation (%d/%d)",
			agreed, len(participants))
	}

	reason := fmt.Sprintf("no available slots found despite %s priority", req.Urgency)
	trail.Record("negotiator: negotiation failed - %s", reason)
	return &Result{
		Success:       false,
		RequestID:     req.ID,
		Participants:  len(participants),
		Urgency:       req.Urgency,
		Stage:         StageFailed,
		FailureReason: reason,
		Trail:         trail.Lines(),
	}
}

// evaluateAll fans the proposal out across participants with bounded
// concurrency and a join barrier, then records decisions in participant
// order. A panicking evaluation is isolated into an implicit reject so the
// slot is correctly excluded instead of aborting the round.
func (p *Protocol) evaluateAll(ctx context.Context, participants []*schedule.Participant, slot schedule.TimeSlot, urgency schedule.Urgency, trail *Trail) []Decision {
	decisions := make([]Decision, len(participants))
	sem := make(chan struct{}, p.cfg.FanOut)
	var wg sync.WaitGroup

	for i, participant := range participants {
		wg.Add(1)
		go func(i int, participant *schedule.Participant) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			defer func() {
				if r := recover(); r != nil {
					util.Error("Participant evaluation panicked",
						"participant", participant.Email,
						"panic", fmt.Sprintf("%v", r),
					)
					decisions[i] = Decision{
						Participant: participant.Email,
						Outcome:     Reject,
						Reason:      ReasonEvaluationFailed,
						Reasoning:   "evaluation failed",
					}
				}
			}()

			if err := ctx.Err(); err != nil {
				decisions[i] = Decision{
					Participant: participant.Email,
					Outcome:     Reject,
					Reason:      ReasonEvaluationFailed,
					Reasoning:   "evaluation aborted: " + err.Error(),
				}
				return
			}

			decisions[i] = p.model.Evaluate(participant, slot, urgency)
		}(i, participant)
	}
	wg.Wait()

	for _, d := range decisions {
		trail.Record("%s", d.AuditLine())
	}
	return decisions
}

// collectCandidates gathers each participant's candidate list with bounded
// concurrency. Elevated urgency widens the search with off-hours probes.
func (p *Protocol) collectCandidates(ctx context.Context, participants []*schedule.Participant, req *Request) map[string][]schedule.TimeSlot {
	results := make([][]schedule.TimeSlot, len(participants))
	sem := make(chan struct{}, p.cfg.FanOut)
	var wg sync.WaitGroup

	for i, participant := range participants {
		wg.Add(1)
		go func(i int, participant *schedule.Participant) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			results[i] = p.model.SuggestAlternatives(participant, req.Date, req.DurationMinutes, req.StrideMinutes, req.Urgency)
		}(i, participant)
	}
	wg.Wait()

	candidates := make(map[string][]schedule.TimeSlot, len(participants))
	for i, participant := range participants {
		candidates[participant.Email] = results[i]
	}
	return candidates
}

// pickIndex asks the oracle to choose among the top-ranked slots. The
// oracle is a tie-break only: any failure or unparsable answer defaults to
// the top-ranked slot.
func (p *Protocol) pickIndex(ctx context.Context, ranked []schedule.TimeSlot) int {
	if p.orc == nil || len(ranked) < 2 {
		return 0
	}

	limit := len(ranked)
	if limit > 3 {
		limit = 3
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pick the best meeting time by replying with its number only.\n")
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&b, "%d: %s (score %.2f)\n", i, ranked[i].Start.Format("15:04"), ranked[i].OverallScore)
	}

	resp, err := p.orc.Complete(ctx, b.String(), p.cfg.OracleMaxTokens)
	if err != nil {
		return 0
	}

	idx, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil || idx < 0 || idx >= limit {
		return 0
	}
	return idx
}

// pollAccommodations asks each participant, via the oracle, whether they
// can reschedule existing commitments or accept an off-hours meeting.
// Oracle failures simply do not count toward agreement.
func (p *Protocol) pollAccommodations(ctx context.Context, participants []*schedule.Participant, req *Request, trail *Trail) int {
	if p.orc == nil {
		return 0
	}

	type answer struct {
		agreed bool
		option string
	}
	answers := make([]answer, len(participants))
	sem := make(chan struct{}, p.cfg.FanOut)
	var wg sync.WaitGroup

	for i, participant := range participants {
		wg.Add(1)
		go func(i int, participant *schedule.Participant) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			prompt := fmt.Sprintf(
				"No standard slots are available for a %s priority meeting on %s.\n"+
					"As %s, can you reschedule an existing meeting or accept one outside normal hours?\n"+
					"Context: %s\n"+
					"Respond with: RESCHEDULE_POSSIBLE|ACCEPT_OFF_HOURS|CANNOT_ACCOMMODATE",
				req.Urgency, req.Date.Format("2006-01-02"), participant.Email, req.Context)

			resp, err := p.orc.Complete(ctx, prompt, p.cfg.OracleMaxTokens)
			if err != nil {
				util.Warn("Accommodation poll failed", "participant", participant.Email, "error", err)
				return
			}

			upper := strings.ToUpper(resp)
			switch {
			case strings.Contains(upper, "RESCHEDULE_POSSIBLE"):
				answers[i] = answer{agreed: true, option: "reschedule existing"}
			case strings.Contains(upper, "ACCEPT_OFF_HOURS"):
				answers[i] = answer{agreed: true, option: "accept off-hours"}
			}
		}(i, participant)
	}
	wg.Wait()

	agreed := 0
	for i, participant := range participants {
		if answers[i].agreed {
			agreed++
			trail.Record("%s: willing to %s", participant.Email, answers[i].option)
		} else {
			trail.Record("%s: cannot accommodate", participant.Email)
		}
	}
	return agreed
}

// acceptedResult finalizes a successful negotiation, attaching advisory
// selection reasoning.
func (p *Protocol) acceptedResult(req *Request, trail *Trail, slot schedule.TimeSlot, consensus float64, stage string, alternatives []schedule.TimeSlot) *Result {
	reasoning := p.selectionReasoning(req, slot, consensus, stage)
	trail.Record("negotiator: %s", reasoning)

	chosen := slot
	return &Result{
		Success:        true,
		RequestID:      req.ID,
		Slot:           &chosen,
		Alternatives:   alternatives,
		ConsensusScore: consensus,
		Participants:   len(req.Participants),
		Urgency:        req.Urgency,
		Stage:          stage,
		Reasoning:      reasoning,
		Trail:          trail.Lines(),
	}
}

// selectionReasoning builds the human-readable justification for the chosen
// slot. It is deterministic; the oracle never drives this text because the
// audit trail must not depend on an external service.
func (p *Protocol) selectionReasoning(req *Request, slot schedule.TimeSlot, consensus float64, stage string) string {
	parts := []string{
		fmt.Sprintf("selected %s for %s priority meeting", slot.Start.Format("15:04"), req.Urgency),
	}

	switch {
	case consensus >= 0.8:
		parts = append(parts, "achieved excellent participant accommodation")
	case consensus >= 0.6:
		parts = append(parts, "provided good balance of participant needs")
	default:
		parts = append(parts, "represents best available compromise given constraints")
	}

	hour := slot.Start.Hour()
	switch {
	case hour >= 9 && hour <= 17:
		parts = append(parts, "scheduled during business hours")
	case req.Urgency.Elevated():
		parts = append(parts, fmt.Sprintf("accommodated %s priority with extended hours", req.Urgency))
	}

	if stage == StageExtendedEscalation {
		parts = append(parts, "participants agreed to extraordinary scheduling measures")
	}

	return strings.Join(parts, "; ")
}

func (p *Protocol) expired(ctx context.Context) bool {
	return ctx.Err() != nil
}

func (p *Protocol) timeoutResult(req *Request, trail *Trail) *Result {
	trail.Record("negotiator: negotiation aborted - deadline exceeded")
	return &Result{
		Success:       false,
		RequestID:     req.ID,
		Participants:  len(req.Participants),
		Urgency:       req.Urgency,
		Stage:         StageFailed,
		FailureReason: "timeout",
		Trail:         trail.Lines(),
	}
}

func countRejects(decisions []Decision) int {
	n := 0
	for _, d := range decisions {
		if d.Outcome == Reject {
			n++
		}
	}
	return n
}

func agreeableFraction(decisions []Decision) float64 {
	if len(decisions) == 0 {
		return 0
	}
	n := 0
	for _, d := range decisions {
		if d.Outcome.Agreeable() {
			n++
		}
	}
	return float64(n) / float64(len(decisions))
}

func meanScore(decisions []Decision) float64 {
	if len(decisions) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range decisions {
		total += d.PreferenceScore
	}
	return total / float64(len(decisions))
}

func alternativesBesides(ranked []schedule.TimeSlot, chosen schedule.TimeSlot, max int) []schedule.TimeSlot {
	var out []schedule.TimeSlot
	for _, s := range ranked {
		if s.Key() == chosen.Key() {
			continue
		}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}
