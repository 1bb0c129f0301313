package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/interestgraph-backend/internal/clients/gcp"
	"github.com/yungbote/interestgraph-backend/internal/clients/redis"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

type Clients struct {
	Vision     gcp.Vision
	Images     gcp.ImageStore
	ResultsBus redis.ResultsBus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	vision, err := gcp.NewVision(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init vision client: %w", err)
	}

	// The image store is only needed for events carrying storage URLs;
	// without a bucket configured, data URLs still work.
	var images gcp.ImageStore
	if strings.TrimSpace(os.Getenv("GCS_BUCKET_NAME")) != "" {
		is, err := gcp.NewImageStore(log)
		if err != nil {
			_ = vision.Close()
			return Clients{}, fmt.Errorf("init image store: %w", err)
		}
		images = is
	} else {
		log.Warn("GCS_BUCKET_NAME not set, storage image URLs will be rejected")
	}

	var bus redis.ResultsBus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		b, err := redis.NewResultsBus(log)
		if err != nil {
			if images != nil {
				_ = images.Close()
			}
			_ = vision.Close()
			return Clients{}, fmt.Errorf("init redis results bus: %w", err)
		}
		bus = b
	} else {
		log.Warn("REDIS_ADDR not set, recommendation results will not be published")
	}

	return Clients{
		Vision:     vision,
		Images:     images,
		ResultsBus: bus,
	}, nil
}

func (c Clients) Close() {
	if c.ResultsBus != nil {
		_ = c.ResultsBus.Close()
	}
	if c.Images != nil {
		_ = c.Images.Close()
	}
	if c.Vision != nil {
		_ = c.Vision.Close()
	}
}
