package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mikey/phishguard/internal/adapters/artifacts"
	"github.com/mikey/phishguard/internal/adapters/model"
	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/ports"
	"go.uber.org/zap"
)

// ModelFactory loads the model artifacts and builds the scorers
type ModelFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewModelFactory creates a new model factory
func NewModelFactory(cfg *config.Config, logger *zap.Logger) *ModelFactory {
	return &ModelFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateArtifactStore returns the store selected by models.source
func (f *ModelFactory) CreateArtifactStore(ctx context.Context) (ports.ArtifactStore, error) {
	modelsCfg, err := f.cfg.GetModels()
	if err != nil {
		return nil, err
	}

	switch modelsCfg.Source {
	case "file", "":
		return artifacts.NewFileStore(modelsCfg.Dir), nil
	case "s3":
		if modelsCfg.S3Bucket == "" {
			return nil, fmt.Errorf("models.s3.bucket is required when models.source is s3")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(modelsCfg.S3Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		return artifacts.NewS3Store(s3.NewFromConfig(awsCfg), modelsCfg.S3Bucket, modelsCfg.S3Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported model source: %s", modelsCfg.Source)
	}
}

// CreateScorers loads all four artifacts and wires the two scorers
func (f *ModelFactory) CreateScorers(ctx context.Context) (*model.LexicalScorer, *model.SequentialScorer, error) {
	modelsCfg, err := f.cfg.GetModels()
	if err != nil {
		return nil, nil, err
	}

	if modelsCfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, modelsCfg.LoadTimeout)
		defer cancel()
	}

	store, err := f.CreateArtifactStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	f.logger.Info("Loading model artifacts",
		zap.String("source", modelsCfg.Source),
		zap.String("vectorizer", store.Location(modelsCfg.Vectorizer)))

	loaded, err := model.LoadArtifacts(ctx, store, model.Manifest{
		Vectorizer: modelsCfg.Vectorizer,
		Forest:     modelsCfg.Forest,
		Tokenizer:  modelsCfg.Tokenizer,
		Sequence:   modelsCfg.Sequence,
		MaxWords:   modelsCfg.MaxWords,
	}, f.logger)
	if err != nil {
		return nil, nil, err
	}

	lexical, sequential, err := model.NewScorers(loaded, modelsCfg.MaxLen)
	if err != nil {
		return nil, nil, err
	}

	f.logger.Info("Model artifacts loaded",
		zap.Int("max_len", modelsCfg.MaxLen),
		zap.Int("max_words", modelsCfg.MaxWords))
	return lexical, sequential, nil
}
