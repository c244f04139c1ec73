package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"tradefloor/internal/trader"
)

// PromptForTrader asks the user to pick one of the floor's traders.
func PromptForTrader(personas []trader.Persona) (string, error) {
	options := make([]string, 0, len(personas))
	for _, persona := range personas {
		options = append(options, fmt.Sprintf("%s %s", persona.Name, persona.Lastname))
	}

	var choice string
	prompt := &survey.Select{
		Message: "Which trader?",
		Options: options,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}

	for _, persona := range personas {
		if choice == fmt.Sprintf("%s %s", persona.Name, persona.Lastname) {
			return persona.Name, nil
		}
	}
	return "", fmt.Errorf("unknown trader %q", choice)
}

// ConfirmReset double-checks before wiping every account.
func ConfirmReset() (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: "Reset every trader's account? Balances, holdings and history will be wiped.",
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
