package bootstrap

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/GoSim-25-26J-441/job-tracker/config"
)

// OpenFirestore initializes the Firebase Admin SDK and returns its Firestore client.
// Without a credentials file the SDK falls back to application default
// credentials, which also covers FIRESTORE_EMULATOR_HOST.
func OpenFirestore(ctx context.Context, cfg config.FirebaseConfig) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}

	return client, nil
}
