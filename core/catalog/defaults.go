package catalog

const demoVideoURL = "https://www.youtube.com/embed/dQw4w9WgXcQ"

func price(v float64) *float64 { return &v }

func lesson(order int, id, title, duration, desc string) NewContentItem {
	return NewContentItem{
		ID:          id,
		Title:       title,
		Description: desc,
		Duration:    duration,
		VideoURL:    demoVideoURL,
		Order:       order,
	}
}

// DefaultPhases returns the stock curriculum used to seed an empty catalog.
func DefaultPhases() []NewPhase {
	return []NewPhase{
		{
			PhaseID:       FreePhaseID,
			Title:         "Phase 1: Beginner",
			Subtitle:      "Foundation course for new traders",
			Price:         price(999),
			OriginalPrice: price(1999),
			Order:         1,
			Content: []NewContentItem{
				lesson(1, "basics", "Basic's", "15:30", "Learn the fundamental concepts of trading and market basics."),
				lesson(2, "technical-analysis", "Technical Analysis", "22:15", "Master technical analysis techniques and chart patterns."),
				lesson(3, "dow-theory", "Dow Theory", "18:45", "Understanding Dow Theory principles and market trends."),
				lesson(4, "smc-crt", "SMC + CRT", "25:10", "Smart Money Concepts and Critical Resistance Theory."),
				lesson(5, "market-structure", "Market Structure", "20:30", "Learn about market structure and price action."),
				lesson(6, "summary", "Summary", "12:20", "Complete summary of Phase 1 concepts and takeaways."),
			},
		},
		{
			PhaseID:       "trader",
			Title:         "Phase 2: Trader",
			Subtitle:      "Intermediate trading strategies",
			Price:         price(1499),
			OriginalPrice: price(2999),
			Order:         2,
			Content: []NewContentItem{
				lesson(1, "demo-trading", "Demo Trading", "18:20", "Practice trading with demo accounts and paper trading."),
				lesson(2, "grow-capital", "How to Grow 50k Capital", "30:15", "Strategies to grow your trading capital from 50k."),
				lesson(3, "trading-journal", "Trading Journal", "15:45", "How to maintain an effective trading journal."),
				lesson(4, "risk-management", "Risk Management", "22:30", "Essential risk management techniques for traders."),
				lesson(5, "trading-psychology", "Trading Psychology", "28:10", "Master the psychology of trading and emotional control."),
				lesson(6, "summary-2", "Summary", "14:25", "Complete summary of Phase 2 concepts and strategies."),
			},
		},
		{
			PhaseID:       "pro-trader",
			Title:         "Phase 3: Pro Trader",
			Subtitle:      "Advanced trading techniques",
			Price:         price(2499),
			OriginalPrice: price(4999),
			Order:         3,
			Content: []NewContentItem{
				lesson(1, "entry-exit-setup", "Entry Exit Setup", "35:20", "Advanced entry and exit strategies for professional traders."),
				lesson(2, "sniper-entry", "Sniper Entry Setup", "42:15", "Precision entry techniques for maximum profit potential."),
				lesson(3, "trap-trading", "Trap Trading Setup", "38:30", "Identifying and avoiding trading traps and false signals."),
				lesson(4, "double-capital", "How to Double Capital", "45:10", "Strategies to double your trading capital effectively."),
				lesson(5, "psychology-awareness", "Trading Psychology Self Awareness", "33:45", "Developing self-awareness and mental discipline in trading."),
				lesson(6, "summary-3", "Summary", "18:50", "Complete summary of Phase 3 advanced concepts."),
			},
		},
		{
			PhaseID:       "master-trader",
			Title:         "Phase 4: Master Trader",
			Subtitle:      "Elite trading mastery",
			Price:         price(3999),
			OriginalPrice: price(7999),
			Order:         4,
			Content: []NewContentItem{
				lesson(1, "deposit-20k", "Deposit 20k", "25:30", "How to start with 20k and build your trading foundation."),
				lesson(2, "best-setups", "Trade with Best Setups", "50:20", "Identifying and executing the highest probability setups."),
				lesson(3, "grow-20k-to-1l", "Grow 20k to 1L", "60:15", "Complete strategy to grow from 20k to 1 lakh rupees."),
				lesson(4, "summary-4", "Summary", "22:40", "Master trader summary and final insights."),
			},
		},
	}
}
