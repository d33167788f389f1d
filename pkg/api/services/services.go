package services

import (
	"context"
	"time"

	"github.com/verdictlabs/verdict/pkg/api/config"
	"github.com/verdictlabs/verdict/pkg/api/services/auth"
	"github.com/verdictlabs/verdict/pkg/api/services/iam"
	"github.com/verdictlabs/verdict/pkg/dataset"
	"github.com/verdictlabs/verdict/pkg/eval"
	"github.com/verdictlabs/verdict/pkg/job"
	"github.com/verdictlabs/verdict/pkg/kv"
	"github.com/verdictlabs/verdict/pkg/vart"
	"github.com/verdictlabs/verdict/pkg/vlog"
)

type Services struct {
	Config    *config.EnvConfig
	Auth      *auth.Service
	IAM       *iam.IAMService
	Evaluator eval.Evaluator
	Jobs      *job.Store
	Runner    *job.Runner
	KV        kv.Store
	Artifacts vart.Store
	Log       *vlog.Logger
}

func NewServices(cfg *config.EnvConfig, logger *vlog.Logger) (*Services, error) {
	var kvStore kv.Store
	if cfg.ValkeyAddr != "" {
		vk, err := kv.NewValkeyStore(kv.ValkeyConfig{
			Addr:     cfg.ValkeyAddr,
			Password: cfg.ValkeyPassword,
			DB:       cfg.ValkeyDB,
		})
		if err != nil {
			return nil, err
		}
		kvStore = vk
	} else {
		logger.Info("valkey not configured, using in-memory kv store")
		kvStore = kv.NewMemoryStore()
	}

	var judge *eval.Judge
	if cfg.JudgeAPIKey != "" {
		j, err := eval.NewJudge(eval.JudgeConfig{
			APIKey:  cfg.JudgeAPIKey,
			BaseURL: cfg.JudgeBaseURL,
			Model:   cfg.JudgeModel,
		})
		if err != nil {
			return nil, err
		}
		judge = j
	}

	evaluator := eval.NewHeuristicEvaluator(judge)

	jobs := job.NewStore(job.WithMaxPageSize(cfg.MaxPageSize))

	var artifacts vart.Store
	if cfg.S3Endpoint != "" {
		s3, err := vart.NewS3Store(vart.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		artifacts = s3
	}

	runnerOpts := []job.RunnerOption{
		job.WithParser(dataset.Parse),
		job.WithLogger(logger),
	}
	if artifacts != nil {
		runnerOpts = append(runnerOpts, job.WithArtifacts(artifacts))
	}
	runner := job.NewRunner(jobs, evaluator, runnerOpts...)

	authSvc, err := auth.NewService(cfg, kvStore)
	if err != nil {
		return nil, err
	}
	iamSvc := iam.NewIAMService(authSvc, logger)

	return &Services{
		Config:    cfg,
		Auth:      authSvc,
		IAM:       iamSvc,
		Evaluator: evaluator,
		Jobs:      jobs,
		Runner:    runner,
		KV:        kvStore,
		Artifacts: artifacts,
		Log:       logger,
	}, nil
}
