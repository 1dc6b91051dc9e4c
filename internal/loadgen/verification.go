package loadgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/cinematch/pkg/logger"
)

// ErrVerification is wrapped by every list that breaks an output guarantee.
var ErrVerification = errors.New("verification failed")

// verifyLists fetches the list of every user whose job succeeded and checks
// that no rated item is recommended and that scores never increase.
// A later job for the same user may have invalidated the list; those
// not-ready answers are skipped.
func verifyLists(ctx context.Context, config *Config, client *HTTPClient, subs []Submission, users []int64, stats *Stats) error {
	rated := make(map[int64]map[int64]struct{}, len(subs))
	for _, s := range subs {
		set := make(map[int64]struct{}, len(s.Ratings))
		for _, r := range s.Ratings {
			set[r.ItemID] = struct{}{}
		}
		rated[s.UserID] = set
	}

	var errs []error
	for _, user := range users {
		recs, err := client.recommendations(ctx, user)
		if err != nil {
			if config.Verbose {
				logger.Get().Warn(ctx, "list unavailable", logger.Int64("user_id", user), logger.Error(err))
			}
			continue
		}
		if err := checkList(user, recs, rated[user]); err != nil {
			errs = append(errs, err)
			continue
		}
		stats.ListsVerified++
		stats.Recommendations += len(recs)
	}
	return errors.Join(errs...)
}

func checkList(user int64, recs []Recommendation, rated map[int64]struct{}) error {
	for i, r := range recs {
		if _, ok := rated[r.ID]; ok {
			return fmt.Errorf("%w: user %d was recommended rated item %d", ErrVerification, user, r.ID)
		}
		if r.Score <= 0 {
			return fmt.Errorf("%w: user %d got non-positive score for item %d", ErrVerification, user, r.ID)
		}
		if i > 0 && recs[i-1].Score < r.Score {
			return fmt.Errorf("%w: user %d list not ordered at position %d", ErrVerification, user, i)
		}
	}
	return nil
}
