package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/services"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

func (a *App) readPin(prompt string) (string, error) {
	b, err := GetPassword(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(b)
	return string(b), nil
}

func (a *App) readNewPin() (string, error) {
	pin, err := a.readPin("New PIN")
	if err != nil {
		return "", err
	}
	again, err := a.readPin("Repeat new PIN")
	if err != nil {
		return "", err
	}
	if pin != again {
		return "", errors.New("PINs do not match")
	}
	return pin, nil
}

func (a *App) requirePin(ctx context.Context) error {
	state, err := a.kms.State(ctx)
	if err != nil {
		return err
	}
	if state == services.StateNoPin {
		return errors.New("no PIN set yet; run setpin first")
	}
	return nil
}

func (a *App) resolveSecret(ctx context.Context, arg string) (string, error) {
	list, err := a.kms.FetchSecrets(ctx)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return resolveID(ids, arg)
}

func (a *App) Secrets(ctx context.Context, _ []string) error {
	list, err := a.kms.FetchSecrets(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No secrets.")
		return nil
	}
	for _, s := range list {
		a.printf("%s %s\n", short(s.ID), s.Name)
	}
	return nil
}

func (a *App) SetPin(ctx context.Context, _ []string) error {
	pin, err := a.readNewPin()
	if err != nil {
		return err
	}
	if err := a.kms.CreatePin(ctx, pin); err != nil {
		if errors.Is(err, common.ErrPinAlreadySet) {
			return errors.New("a PIN is already set; use changepin")
		}
		return err
	}
	a.println("PIN set.")
	return nil
}

func (a *App) ChangePin(ctx context.Context, _ []string) error {
	if err := a.requirePin(ctx); err != nil {
		return err
	}
	oldPin, err := a.readPin("Current PIN")
	if err != nil {
		return err
	}
	newPin, err := a.readNewPin()
	if err != nil {
		return err
	}

	err = a.kms.UpdatePin(ctx, oldPin, newPin)
	var partial *common.PartialReKeyError
	if errors.As(err, &partial) {
		return fmt.Errorf("%d secret(s) moved to the new PIN before %s failed; run changepin again with the same PINs to finish: %w",
			len(partial.Rekeyed), short(partial.FailedID), partial.Err)
	}
	if err != nil {
		return err
	}
	a.println("PIN changed.")
	return nil
}

func (a *App) AddSecret(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usage("addsecret")
	}
	if err := a.requirePin(ctx); err != nil {
		return err
	}
	name := strings.Join(args, " ")

	value, err := GetPassword(a.reader, "Secret value", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(value)
	if len(value) == 0 {
		return errCancelled
	}
	pin, err := a.readPin("PIN")
	if err != nil {
		return err
	}

	return a.kms.WithVerifiedPin(ctx, pin, func(ctx context.Context) error {
		s, err := a.kms.AddSecret(ctx, name, value, pin)
		if err != nil {
			return err
		}
		a.printf("stored %s\n", short(s.ID))
		return nil
	})
}

func (a *App) Reveal(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("reveal")
	}
	id, err := a.resolveSecret(ctx, args[0])
	if err != nil {
		return err
	}
	pin, err := a.readPin("PIN")
	if err != nil {
		return err
	}

	return a.kms.WithVerifiedPin(ctx, pin, func(ctx context.Context) error {
		plain, err := a.kms.GetSecret(ctx, id, pin)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(plain)
		a.println(string(plain))
		return nil
	})
}

func (a *App) RemoveSecret(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("rmsecret")
	}
	id, err := a.resolveSecret(ctx, args[0])
	if err != nil {
		return err
	}
	pin, err := a.readPin("PIN")
	if err != nil {
		return err
	}
	return a.kms.WithVerifiedPin(ctx, pin, func(ctx context.Context) error {
		return a.kms.DeleteSecret(ctx, id)
	})
}
