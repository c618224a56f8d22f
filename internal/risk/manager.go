// Package risk implements account-level risk management: Kelly-based position
// sizing, portfolio heat tracking, drawdown monitoring and per-trade
// validation. A single Manager owns the trade ledger; all methods are safe for
// concurrent use.
package risk

import (
	"fmt"
	"math"
	"sync"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Profile holds the account settings every risk decision is made against.
// Fractions are decimals (0.02 = 2%), the confidence threshold is in percent.
type Profile struct {
	AccountBalance      float64
	MaxRiskPerTrade     float64
	MaxPortfolioHeat    float64
	MaxDrawdown         float64
	ConfidenceThreshold float64
	WinRate             float64
	AvgWinLossRatio     float64
}

// DefaultProfile returns the stock profile for a given starting balance.
func DefaultProfile(balance float64) Profile {
	return Profile{
		AccountBalance:      balance,
		MaxRiskPerTrade:     0.02,
		MaxPortfolioHeat:    0.06,
		MaxDrawdown:         0.20,
		ConfidenceThreshold: 75,
		WinRate:             0.55,
		AvgWinLossRatio:     1.5,
	}
}

// Validate rejects profiles that would make the sizing math meaningless.
func (p Profile) Validate() error {
	if p.AccountBalance <= 0 {
		return fmt.Errorf("risk: account balance must be positive: %w", ports.ErrConfigurationError)
	}
	if p.MaxRiskPerTrade <= 0 || p.MaxRiskPerTrade >= 1 {
		return fmt.Errorf("risk: max risk per trade must be in (0, 1): %w", ports.ErrConfigurationError)
	}
	if p.MaxPortfolioHeat <= 0 || p.MaxPortfolioHeat >= 1 {
		return fmt.Errorf("risk: max portfolio heat must be in (0, 1): %w", ports.ErrConfigurationError)
	}
	if p.MaxDrawdown <= 0 || p.MaxDrawdown >= 1 {
		return fmt.Errorf("risk: max drawdown must be in (0, 1): %w", ports.ErrConfigurationError)
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 100 {
		return fmt.Errorf("risk: confidence threshold must be in [0, 100]: %w", ports.ErrConfigurationError)
	}
	if p.WinRate <= 0 || p.WinRate >= 1 {
		return fmt.Errorf("risk: win rate must be in (0, 1): %w", ports.ErrConfigurationError)
	}
	if p.AvgWinLossRatio <= 0 {
		return fmt.Errorf("risk: win/loss ratio must be positive: %w", ports.ErrConfigurationError)
	}
	return nil
}

// Sizing is the full position sizing breakdown for one proposed trade.
// Recommended is the confidence-adjusted size.
type Sizing struct {
	Standard           float64
	Kelly              float64
	ConfidenceAdjusted float64
	MaxForHeat         float64
	Conservative       float64
	Aggressive         float64
	Recommended        float64
	RiskDollars        float64
	RiskPerUnit        float64
	KellyFraction      float64
}

// Validation is the outcome of the pre-trade checks. Every check contributes a
// reason whether it passed or not, so a rejection always explains itself.
type Validation struct {
	Approved  bool
	Reasons   []string
	Warnings  []string
	RiskScore int
}

// Report is a snapshot of the manager's current exposure.
type Report struct {
	AccountBalance   float64
	PeakBalance      float64
	CurrentDrawdown  float64
	PortfolioHeat    float64
	OpenTrades       int
	MaxHeatAvailable float64
	TradesClosed     int
	KellyFraction    float64
	Status           string
}

// ClosedTrade records the outcome of one closed ledger entry.
type ClosedTrade struct {
	Pair         string
	Side         domain.OrderSide
	Entry        float64
	Exit         float64
	PositionSize float64
	PNL          float64
	PNLPercent   float64
	Balance      float64
}

type openTrade struct {
	pair        string
	side        domain.OrderSide
	entry       float64
	stopLoss    float64
	size        float64
	confidence  float64
	riskDollars float64
}

// Manager owns the open-trade ledger and the running balance. Heat and
// drawdown are always derived from the ledger at call time, never cached.
type Manager struct {
	mu      sync.Mutex
	profile Profile
	open    []openTrade
	history []ClosedTrade
	balance float64
	peak    float64
}

// NewManager validates the profile and seeds the balance tracking from it.
func NewManager(profile Profile) (*Manager, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		profile: profile,
		balance: profile.AccountBalance,
		peak:    profile.AccountBalance,
	}, nil
}

// PositionSize computes the sizing breakdown for a proposed trade. A zero
// distance between entry and stop is rejected outright.
func (m *Manager) PositionSize(entry, stopLoss, confidence float64) (*Sizing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	riskPerUnit := math.Abs(entry - stopLoss)
	if riskPerUnit == 0 {
		return nil, fmt.Errorf("risk: entry %.8f equals stop loss: %w", entry, ports.ErrInvalidRisk)
	}

	riskDollars := m.balance * m.profile.MaxRiskPerTrade
	standard := riskDollars / riskPerUnit
	kellyFrac := m.kellyFraction()
	adjusted := standard * confidence / 100

	s := &Sizing{
		Standard:           standard,
		Kelly:              m.balance * kellyFrac / riskPerUnit,
		ConfidenceAdjusted: adjusted,
		MaxForHeat:         m.maxSizeForHeat(riskPerUnit),
		Conservative:       standard * 0.7,
		Aggressive:         standard,
		Recommended:        adjusted,
		RiskDollars:        riskDollars,
		RiskPerUnit:        riskPerUnit,
		KellyFraction:      kellyFrac,
	}
	return s, nil
}

// ValidateTrade runs every check and reports all outcomes. Checks do not
// short-circuit: a trade failing two rules surfaces both reasons.
func (m *Manager) ValidateTrade(entry, stopLoss, confidence float64) Validation {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := Validation{Approved: true}

	if confidence < m.profile.ConfidenceThreshold {
		v.Approved = false
		v.Reasons = append(v.Reasons, fmt.Sprintf("confidence %.0f%% below threshold %.0f%%", confidence, m.profile.ConfidenceThreshold))
	} else {
		v.Reasons = append(v.Reasons, fmt.Sprintf("confidence %.0f%% meets threshold", confidence))
	}

	heat := m.portfolioHeat()
	if heat >= m.profile.MaxPortfolioHeat {
		v.Approved = false
		v.Reasons = append(v.Reasons, fmt.Sprintf("portfolio heat %.1f%% at or above max %.1f%%", heat*100, m.profile.MaxPortfolioHeat*100))
	} else {
		v.Reasons = append(v.Reasons, fmt.Sprintf("portfolio heat %.1f%% below max", heat*100))
	}

	// Drawdown warns but does not block on its own.
	if dd := m.drawdown(); dd >= m.profile.MaxDrawdown {
		v.Warnings = append(v.Warnings, fmt.Sprintf("drawdown %.1f%% at limit %.1f%%", dd*100, m.profile.MaxDrawdown*100))
	}

	riskPerUnit := math.Abs(entry - stopLoss)
	if riskPerUnit == 0 {
		v.Approved = false
		v.Reasons = append(v.Reasons, "invalid risk: entry equals stop loss")
	} else {
		v.Reasons = append(v.Reasons, fmt.Sprintf("risk per unit %.8f", riskPerUnit))
	}

	v.RiskScore = m.tradeRiskScore(confidence, riskPerUnit, heat)
	return v
}

// AddTrade enters a trade into the ledger, increasing portfolio heat.
func (m *Manager) AddTrade(pair string, side domain.OrderSide, entry, stopLoss, size, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.open = append(m.open, openTrade{
		pair:        pair,
		side:        side,
		entry:       entry,
		stopLoss:    stopLoss,
		size:        size,
		confidence:  confidence,
		riskDollars: size * math.Abs(entry-stopLoss),
	})
}

// CloseTrade settles the first open trade for the pair at the exit price and
// applies the realized P&L to the balance. The peak balance only ever rises.
func (m *Manager) CloseTrade(pair string, exitPrice float64) (*ClosedTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, t := range m.open {
		if t.pair == pair {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("risk: no open trade for %s: %w", pair, ports.ErrPositionNotFound)
	}

	t := m.open[idx]
	m.open = append(m.open[:idx], m.open[idx+1:]...)

	pnl := (exitPrice - t.entry) * t.size
	if t.side == domain.Sell {
		pnl = -pnl
	}
	pnlPct := 0.0
	if t.entry*t.size != 0 {
		pnlPct = pnl / (t.entry * t.size) * 100
	}

	m.balance += pnl
	if m.balance > m.peak {
		m.peak = m.balance
	}

	closed := ClosedTrade{
		Pair:         pair,
		Side:         t.side,
		Entry:        t.entry,
		Exit:         exitPrice,
		PositionSize: t.size,
		PNL:          pnl,
		PNLPercent:   pnlPct,
		Balance:      m.balance,
	}
	m.history = append(m.history, closed)
	return &closed, nil
}

// Report summarizes current exposure and balance state.
func (m *Manager) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	heat := m.portfolioHeat()
	status := "Healthy"
	if heat >= m.profile.MaxPortfolioHeat*0.8 {
		status = "High Heat"
	}
	return Report{
		AccountBalance:   m.balance,
		PeakBalance:      m.peak,
		CurrentDrawdown:  m.drawdown(),
		PortfolioHeat:    heat,
		OpenTrades:       len(m.open),
		MaxHeatAvailable: m.profile.MaxPortfolioHeat - heat,
		TradesClosed:     len(m.history),
		KellyFraction:    m.kellyFraction(),
		Status:           status,
	}
}

// Balance returns the current account balance.
func (m *Manager) Balance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

// kellyFraction is the capped Kelly criterion scaled by a 25% safety factor.
// It reads only the immutable profile.
func (m *Manager) kellyFraction() float64 {
	w := m.profile.WinRate
	r := m.profile.AvgWinLossRatio
	kelly := (w*r - (1 - w)) / r
	if kelly < 0 {
		kelly = 0
	}
	if kelly > 0.25 {
		kelly = 0.25
	}
	return kelly * 0.25
}

func (m *Manager) portfolioHeat() float64 {
	if len(m.open) == 0 {
		return 0
	}
	total := 0.0
	for _, t := range m.open {
		total += t.riskDollars
	}
	return total / m.balance
}

func (m *Manager) drawdown() float64 {
	if m.balance >= m.peak {
		return 0
	}
	return (m.peak - m.balance) / m.peak
}

func (m *Manager) maxSizeForHeat(riskPerUnit float64) float64 {
	available := m.profile.MaxPortfolioHeat - m.portfolioHeat()
	if available <= 0 || riskPerUnit <= 0 {
		return 0
	}
	return m.balance * available / riskPerUnit
}

// tradeRiskScore grades a proposed trade 0-100, higher meaning safer:
// confidence up to 30 points, stop distance up to 40, remaining heat room up
// to 30.
func (m *Manager) tradeRiskScore(confidence, riskPerUnit, heat float64) int {
	score := clamp((confidence-50)/50*30, 0, 30)

	riskFactor := riskPerUnit / (m.balance * 0.01)
	score += clamp(40-riskFactor*10, 0, 40)

	score += clamp((1-heat/m.profile.MaxPortfolioHeat)*30, 0, 30)
	return int(score)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
