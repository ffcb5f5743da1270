// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/bureau-foundation/lostfound/lib/config"
	"github.com/bureau-foundation/lostfound/lib/schema/message"
)

// seed registers configured demo users and, into an empty database
// only, demo items. Restarting with the same seed is a no-op.
func (s *LostfoundService) seed(ctx context.Context, seed config.SeedConfig) error {
	for _, username := range seed.Users {
		if err := s.engine.RegisterUser(ctx, username); err != nil {
			return err
		}
	}
	if len(seed.Items) == 0 {
		return nil
	}

	existing, err := s.store.CountItems(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		s.logger.Info("items already present, skipping item seed", "existing", existing)
		return nil
	}
	for _, item := range seed.Items {
		if _, err := s.engine.RegisterItem(ctx, item.CreatedBy, message.RegisterItemRequest{Title: item.Title}); err != nil {
			return err
		}
	}
	s.logger.Info("seeded demo data", "users", len(seed.Users), "items", len(seed.Items))
	return nil
}
