package cli

import (
	"context"
	"errors"
)

func (a *App) Sync(ctx context.Context, _ []string) error {
	if !a.online.IsOnline() {
		return errors.New("offline; changes stay queued until the backend is reachable")
	}
	res, err := a.sync.Drain(ctx)
	a.printf("applied %d, abandoned %d, remaining %d\n", res.Applied, res.Abandoned, res.Remaining)
	return err
}

func (a *App) Backup(ctx context.Context, _ []string) error {
	if a.backup == nil {
		return errors.New("backups are not configured")
	}
	key, err := a.backup.Run(ctx)
	if err != nil {
		return err
	}
	a.println("backup stored as", key)
	return nil
}

func (a *App) Status(ctx context.Context, _ []string) error {
	mode := "offline"
	if a.online.IsOnline() {
		mode = "online"
	}
	a.printf("user:   %s\n", a.userID)
	a.printf("mode:   %s\n", mode)

	n, err := a.queue.Pending(ctx)
	if err != nil {
		return err
	}
	a.printf("queued: %d\n", n)

	state, err := a.kms.State(ctx)
	if err != nil {
		a.printf("pin:    unknown (%v)\n", err)
		return nil
	}
	a.printf("pin:    %s\n", state)
	return nil
}
