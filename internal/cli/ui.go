package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"tradefloor/internal/account"
	"tradefloor/internal/storage"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	summaryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(72)

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	logTypeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8B5CF6"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner() {
	banner := `
████████╗██████╗  █████╗ ██████╗ ███████╗███████╗██╗      ██████╗  ██████╗ ██████╗
╚══██╔══╝██╔══██╗██╔══██╗██╔══██╗██╔════╝██╔════╝██║     ██╔═══██╗██╔═══██╗██╔══██╗
   ██║   ██████╔╝███████║██║  ██║█████╗  █████╗  ██║     ██║   ██║██║   ██║██████╔╝
   ██║   ██╔══██╗██╔══██║██║  ██║██╔══╝  ██╔══╝  ██║     ██║   ██║██║   ██║██╔══██╗
   ██║   ██║  ██║██║  ██║██████╔╝███████╗██║     ███████╗╚██████╔╝╚██████╔╝██║  ██║
   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚══════╝╚═╝     ╚══════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝

                 🏦 Autonomous Traders on a Simulated Floor 🏦
`

	welcomeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true).
		Align(lipgloss.Center).
		Width(86)

	fmt.Print(welcomeStyle.Render(banner))
	fmt.Println()
}

// DisplayAccountSummary renders one trader's portfolio snapshot.
func DisplayAccountSummary(acct *account.Account, value, pnl decimal.Decimal) {
	var b strings.Builder

	fmt.Fprintf(&b, "Trader:           %s\n", acct.Name)
	fmt.Fprintf(&b, "Cash Balance:     $%s\n", acct.Balance.StringFixed(2))
	fmt.Fprintf(&b, "Portfolio Value:  $%s\n", value.StringFixed(2))

	pnlStyle := gainStyle
	if pnl.IsNegative() {
		pnlStyle = lossStyle
	}
	fmt.Fprintf(&b, "Profit / Loss:    %s\n", pnlStyle.Render("$"+pnl.StringFixed(2)))

	if len(acct.Holdings) > 0 {
		b.WriteString("\nHoldings:\n")
		symbols := make([]string, 0, len(acct.Holdings))
		for symbol := range acct.Holdings {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			fmt.Fprintf(&b, "  %-8s %d shares\n", symbol, acct.Holdings[symbol])
		}
	} else {
		b.WriteString("\nNo open positions.\n")
	}

	if acct.Strategy != "" {
		fmt.Fprintf(&b, "\nStrategy: %s\n", acct.Strategy)
	}

	fmt.Println(titleStyle.Render("💼 Account"))
	fmt.Println(summaryStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// DisplayActivityLog renders the recent log entries, oldest first.
func DisplayActivityLog(entries []storage.LogEntry) {
	fmt.Println(titleStyle.Render("📜 Recent Activity"))
	if len(entries) == 0 {
		fmt.Println(dimStyle.Render("  (no activity yet)"))
		return
	}
	for _, entry := range entries {
		fmt.Printf("  %s  %s  %s\n",
			dimStyle.Render(entry.Timestamp.Format("2006-01-02 15:04:05")),
			logTypeStyle.Render(fmt.Sprintf("%-8s", entry.Type)),
			entry.Message)
	}
}
