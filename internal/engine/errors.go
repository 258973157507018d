package engine

import (
	"errors"

	"github.com/ivlev/spritegrid/internal/animation"
	"github.com/ivlev/spritegrid/internal/classifier"
	"github.com/ivlev/spritegrid/internal/gameconfig"
	"github.com/ivlev/spritegrid/internal/raster"
)

var (
	ErrNoSheet          = errors.New("no spritesheet loaded")
	ErrNoDetection      = errors.New("no detection results")
	ErrStalePass        = errors.New("detection pass superseded by a newer one")
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrDecode                = raster.ErrDecode
	ErrClassifierUnavailable = classifier.ErrUnavailable
	ErrNotFound              = gameconfig.ErrNotFound

	ErrEmptySelection        = animation.ErrEmptySelection
	ErrEmptyAnimationSet     = animation.ErrEmptyAnimationSet
	ErrMissingImageReference = animation.ErrMissingImageReference
)
