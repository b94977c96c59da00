// Package prompt wraps manifoldco/promptui for the cluster's interactive
// console: picking a command from a menu and collecting its arguments.
package prompt

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user cancels a prompt (Ctrl+C/Ctrl+D).
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err indicates the user cancelled a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Select prompts the user to choose one of items, returning the chosen
// string.
func Select(label string, items []string) (string, error) {
	p := promptui.Select{
		Label: label,
		Items: items,
		Size:  len(items),
	}
	_, result, err := p.Run()
	return result, wrapError(err)
}

// Input prompts for required text input.
func Input(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if input == "" {
				return fmt.Errorf("required")
			}
			return nil
		},
	}
	result, err := p.Run()
	return result, wrapError(err)
}

// InputInt64 prompts for an integer, with an optional default.
func InputInt64(label string, defaultValue int64) (int64, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: strconv.FormatInt(defaultValue, 10),
		Validate: func(input string) error {
			_, err := strconv.ParseInt(input, 10, 64)
			if err != nil {
				return fmt.Errorf("must be a valid integer")
			}
			return nil
		},
	}
	result, err := p.Run()
	if err != nil {
		return 0, wrapError(err)
	}
	value, _ := strconv.ParseInt(result, 10, 64) // already validated
	return value, nil
}
