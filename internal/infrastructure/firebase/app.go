package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"homelink/pkg/config"
)

// App wraps the Firebase Admin app and the credentials it was built with, so
// the Firestore and Storage clients share them.
type App struct {
	app     *fbapp.App
	project string
	option  option.ClientOption
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	opt, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if opt != nil {
		opts = append(opts, opt)
	}

	app, err := fbapp.NewApp(ctx, &fbapp.Config{
		ProjectID:   cfg.FirebaseProject,
		DatabaseURL: cfg.FirebaseDatabaseURL,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase: %w", err)
	}

	return &App{app: app, project: cfg.FirebaseProject, option: opt}, nil
}

func credentials(cfg *config.Config) (option.ClientOption, error) {
	switch {
	case cfg.FirebaseCredentialsJSON != "":
		return option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)), nil
	case cfg.FirebaseCredentialsPath != "":
		return option.WithCredentialsFile(cfg.FirebaseCredentialsPath), nil
	default:
		// application default credentials
		return nil, nil
	}
}

func (a *App) ClientOptions() []option.ClientOption {
	if a.option == nil {
		return nil
	}
	return []option.ClientOption{a.option}
}

func (a *App) Auth(ctx context.Context) (*auth.Client, error) {
	return a.app.Auth(ctx)
}

func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	return firestore.NewClient(ctx, a.project, a.ClientOptions()...)
}

func (a *App) Database(ctx context.Context) (*db.Client, error) {
	return a.app.Database(ctx)
}
