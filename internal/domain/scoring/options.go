package scoring

import "github.com/okian/cinematch/pkg/logger"

// Default pipeline weights.
const (
	DefaultUserWeight     = 1.2
	DefaultContentWeight  = 4.0
	DefaultDirectorWeight = 1.0
	DefaultActorWeight    = 0.2
	DefaultPlotWeight     = 1.2
	DefaultNeutralRating  = 3.0
	DefaultMidpoint       = 2.5
	DefaultPlotNeighbors  = 10
	DefaultClosestUsers   = 5
)

// ContentOption configures a ContentScorer.
type ContentOption func(*ContentScorer)

// WithSignalWeights sets the director, actor and plot weights.
func WithSignalWeights(director, actor, plot float64) ContentOption {
	return func(s *ContentScorer) {
		s.directorWeight = director
		s.actorWeight = actor
		s.plotWeight = plot
	}
}

// WithPlotNeighbors sets K for the nearest-plot query.
func WithPlotNeighbors(k int) ContentOption {
	return func(s *ContentScorer) {
		if k > 0 {
			s.plotNeighbors = k
		}
	}
}

// WithContentLogger sets a custom logger.
func WithContentLogger(l logger.Logger) ContentOption {
	return func(s *ContentScorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// CollaborativeOption configures a CollaborativeScorer.
type CollaborativeOption func(*CollaborativeScorer)

// WithClosestUsers sets N, the size of the neighbourhood.
func WithClosestUsers(n int) CollaborativeOption {
	return func(s *CollaborativeScorer) {
		if n > 0 {
			s.closestUsers = n
		}
	}
}

// WithNeutralRating sets the raw rating assumed for unrated comparison items.
func WithNeutralRating(v float64) CollaborativeOption {
	return func(s *CollaborativeScorer) {
		s.neutral = v
	}
}

// WithCollaborativeMidpoint sets the normalization midpoint for neighbour ratings.
func WithCollaborativeMidpoint(mid float64) CollaborativeOption {
	return func(s *CollaborativeScorer) {
		s.midpoint = mid
	}
}

// WithCollaborativeLogger sets a custom logger.
func WithCollaborativeLogger(l logger.Logger) CollaborativeOption {
	return func(s *CollaborativeScorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// CombinerOption configures a Combiner.
type CombinerOption func(*Combiner)

// WithWeights sets the collaborative (user) and content weights.
func WithWeights(user, content float64) CombinerOption {
	return func(c *Combiner) {
		c.userWeight = user
		c.contentWeight = content
	}
}

// WithMidpoint sets the normalization midpoint applied to input ratings.
func WithMidpoint(mid float64) CombinerOption {
	return func(c *Combiner) {
		c.midpoint = mid
	}
}

// WithCombinerLogger sets a custom logger.
func WithCombinerLogger(l logger.Logger) CombinerOption {
	return func(c *Combiner) {
		if l != nil {
			c.logger = l
		}
	}
}
