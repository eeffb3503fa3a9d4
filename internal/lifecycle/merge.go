package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/domain/model"
)

var (
	ErrDigestMismatch   = errors.New("life cycle digest mismatch")
	ErrUnknownEventKind = errors.New("unknown life cycle event kind")
)

type fieldCopier func(dst *model.LifeCycle, src *model.LifeCycle)

// Copiers only write provided (non-zero) values so replays and out-of-order
// producers never clear data. IsRelay is sticky once set.
var (
	copySrcChain = func(d, s *model.LifeCycle) {
		if s.SrcChain != 0 {
			d.SrcChain = s.SrcChain
		}
	}
	copyDestChain = func(d, s *model.LifeCycle) {
		if s.DestChain != 0 {
			d.DestChain = s.DestChain
		}
	}
	copySourceToken        = stringCopier(func(lc *model.LifeCycle) *string { return &lc.SourceToken })
	copyTokenAmount        = stringCopier(func(lc *model.LifeCycle) *string { return &lc.TokenAmount })
	copyTransferSentTxHash = stringCopier(func(lc *model.LifeCycle) *string { return &lc.TransferSentTxHash })
	copyRedeemedTxHash     = stringCopier(func(lc *model.LifeCycle) *string { return &lc.RedeemedTxHash })
	copyNttTransferKey     = stringCopier(func(lc *model.LifeCycle) *string { return &lc.NttTransferKey })
	copyVaaID              = stringCopier(func(lc *model.LifeCycle) *string { return &lc.VaaID })

	copyTransferBlockHeight = uintCopier(func(lc *model.LifeCycle) *uint64 { return &lc.TransferBlockHeight })
	copyRedeemedBlockHeight = uintCopier(func(lc *model.LifeCycle) *uint64 { return &lc.RedeemedBlockHeight })

	copyTransferTime                   = timeCopier(func(lc *model.LifeCycle) **time.Time { return &lc.TransferTime })
	copyRedeemTime                     = timeCopier(func(lc *model.LifeCycle) **time.Time { return &lc.RedeemTime })
	copyInboundTransferQueuedTime      = timeCopier(func(lc *model.LifeCycle) **time.Time { return &lc.InboundTransferQueuedTime })
	copyOutboundTransferQueuedTime     = timeCopier(func(lc *model.LifeCycle) **time.Time { return &lc.OutboundTransferQueuedTime })
	copyOutboundTransferReleasableTime = timeCopier(func(lc *model.LifeCycle) **time.Time { return &lc.OutboundTransferReleasableTime })

	copyIsRelay = func(d, s *model.LifeCycle) {
		d.IsRelay = d.IsRelay || s.IsRelay
	}
)

// whitelist lists the fields each event kind may write.
var whitelist = map[model.EventKind][]fieldCopier{
	model.EventTransferSent: {
		copySrcChain, copyDestChain, copySourceToken, copyTokenAmount,
		copyTransferSentTxHash, copyTransferBlockHeight, copyTransferTime,
		copyVaaID, copyNttTransferKey, copyIsRelay,
	},
	model.EventTransferRedeemed: {
		copyDestChain, copyRedeemedTxHash, copyRedeemedBlockHeight, copyRedeemTime,
	},
	model.EventInboundTransferQueued: {
		copyInboundTransferQueuedTime,
	},
	model.EventOutboundTransferQueued: {
		copyOutboundTransferQueuedTime,
	},
	model.EventOutboundTransferRateLimited: {
		copyOutboundTransferReleasableTime,
	},
	model.EventOutboxTransferCreated: {
		copySrcChain, copyDestChain, copySourceToken, copyTokenAmount, copyNttTransferKey,
		copyOutboundTransferQueuedTime, copyOutboundTransferReleasableTime,
	},
	model.EventOutboxReleased: {
		copyVaaID, copyTransferSentTxHash, copyTransferBlockHeight, copyTransferTime,
	},
	model.EventRelayRequested: {
		copyIsRelay,
	},
	model.EventInboxMessageReceived: {
		copyVaaID,
	},
	model.EventInboxRedeemed: {
		copyInboundTransferQueuedTime,
	},
	model.EventInboxReleased: {
		copyRedeemTime, copyRedeemedTxHash, copyRedeemedBlockHeight,
	},
}

// KnownKind reports whether kind has a whitelist.
func KnownKind(kind model.EventKind) bool {
	_, ok := whitelist[kind]
	return ok
}

// Merge copies the fields kind is allowed to write from fields onto base.
// The digest of base is never changed.
func Merge(base, fields model.LifeCycle, kind model.EventKind) (model.LifeCycle, error) {
	copiers, ok := whitelist[kind]
	if !ok {
		return base, fmt.Errorf("%w: %q", ErrUnknownEventKind, kind)
	}
	if fields.Digest != "" && base.Digest != "" && fields.Digest != base.Digest {
		return base, fmt.Errorf("%w: record %s, fields %s", ErrDigestMismatch, base.Digest, fields.Digest)
	}
	out := base
	for _, cp := range copiers {
		cp(&out, &fields)
	}
	return out, nil
}

func stringCopier(get func(*model.LifeCycle) *string) fieldCopier {
	return func(d, s *model.LifeCycle) {
		if v := *get(s); v != "" {
			*get(d) = v
		}
	}
}

func uintCopier(get func(*model.LifeCycle) *uint64) fieldCopier {
	return func(d, s *model.LifeCycle) {
		if v := *get(s); v != 0 {
			*get(d) = v
		}
	}
}

func timeCopier(get func(*model.LifeCycle) **time.Time) fieldCopier {
	return func(d, s *model.LifeCycle) {
		if v := *get(s); v != nil {
			t := *v
			*get(d) = &t
		}
	}
}
