package sabr

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestNewBuilderDefaults(t *testing.T) {
	req := NewBuilder().Build()

	if req.ClientAbrState.StickyResolution == nil || *req.ClientAbrState.StickyResolution != DefaultQuality {
		t.Fatalf("expected default sticky resolution %d, got %+v", DefaultQuality, req.ClientAbrState.StickyResolution)
	}
	if req.StreamerContext.ClientInfo == nil {
		t.Fatalf("expected client info to be set")
	}
	if *req.StreamerContext.ClientInfo.ClientName != ClientNameWeb {
		t.Fatalf("expected default client name WEB, got %+v", req.StreamerContext.ClientInfo.ClientName)
	}
	if *req.StreamerContext.ClientInfo.ClientVersion != defaultClientVersion {
		t.Fatalf("expected default client version, got %q", *req.StreamerContext.ClientInfo.ClientVersion)
	}
}

func TestBuilderPlayerTimeMsQuirk(t *testing.T) {
	req := NewBuilder().WithPlayerTimeMs(45000).Build()

	if req.PlayerTimeMs != 0 {
		t.Fatalf("expected top-level player_time_ms to stay 0, got %d", req.PlayerTimeMs)
	}
	if req.ClientAbrState.PlayerTimeMs == nil || *req.ClientAbrState.PlayerTimeMs != 45000 {
		t.Fatalf("expected client_abr_state.player_time_ms = 45000, got %+v", req.ClientAbrState.PlayerTimeMs)
	}
}

func TestBuilderFluentChainAppliesAllOverrides(t *testing.T) {
	audio := []FormatId{NewFormatId(140, 1000, "")}
	video := []FormatId{NewFormatId(137, 2000, "Range/0-100")}
	ranges := []BufferedRange{NewBufferedRange(NewFormatId(137, 2000, ""), 0, 5000, 0, 10)}

	req := NewBuilder().
		WithResolution(1080).
		WithViewportSize(1920, 1080).
		WithBandwidthEstimate(500000).
		WithAudioFormats(audio).
		WithVideoFormats(video).
		WithBufferedRanges(ranges).
		WithEnabledTrackTypes(3).
		WithVisibility(1).
		WithPlaybackRate(1.5).
		Build()

	if *req.ClientAbrState.StickyResolution != 1080 || *req.ClientAbrState.LastManualSelectedResolution != 1080 {
		t.Fatalf("resolution override not applied: %+v", req.ClientAbrState)
	}
	if *req.ClientAbrState.ClientViewportWidth != 1920 || *req.ClientAbrState.ClientViewportHeight != 1080 {
		t.Fatalf("viewport override not applied: %+v", req.ClientAbrState)
	}
	if *req.ClientAbrState.BandwidthEstimate != 500000 {
		t.Fatalf("bandwidth override not applied: %+v", req.ClientAbrState.BandwidthEstimate)
	}
	if len(req.SelectedAudioFormatIds) != 1 || len(req.SelectedVideoFormatIds) != 1 {
		t.Fatalf("format selections not applied")
	}
	if len(req.BufferedRanges) != 1 {
		t.Fatalf("buffered ranges not applied")
	}
	if *req.ClientAbrState.EnabledTrackTypesBitfield != 3 {
		t.Fatalf("enabled track types not applied")
	}
	if *req.ClientAbrState.Visibility != 1 {
		t.Fatalf("visibility not applied")
	}
	if *req.ClientAbrState.PlaybackRate != 1.5 {
		t.Fatalf("playback rate not applied")
	}
	// SelectedFormatIds must stay empty regardless of other overrides.
	if req.SelectedFormatIds != nil {
		t.Fatalf("expected selected_format_ids to stay nil, got %+v", req.SelectedFormatIds)
	}
}

func TestClientInfoFromQueryMapsClientNames(t *testing.T) {
	cases := []struct {
		c, cver  string
		wantName int32
		wantVer  string
	}{
		{"ANDROID", "19.05.34", ClientNameAndroid, "19.05.34"},
		{"IOS", "19.05.34", ClientNameIOS, "19.05.34"},
		{"WEB", "", ClientNameWeb, defaultClientVersion},
		{"", "", ClientNameWeb, defaultClientVersion},
		{"SOMETHING_ELSE", "1.2.3", ClientNameWeb, "1.2.3"},
	}
	for _, tc := range cases {
		ci := ClientInfoFromQuery(tc.c, tc.cver)
		if ci.ClientName == nil || *ci.ClientName != tc.wantName {
			t.Errorf("c=%q: client name = %+v, want %d", tc.c, ci.ClientName, tc.wantName)
		}
		if ci.ClientVersion == nil || *ci.ClientVersion != tc.wantVer {
			t.Errorf("c=%q cver=%q: client version = %+v, want %q", tc.c, tc.cver, ci.ClientVersion, tc.wantVer)
		}
	}
}

func TestVideoPlaybackAbrRequestMarshalIsWellFormedProtobuf(t *testing.T) {
	req := NewBuilder().
		WithResolution(720).
		WithVideoFormats([]FormatId{NewFormatId(137, 2000, "")}).
		Build()

	encoded := req.Marshal()
	if len(encoded) == 0 {
		t.Fatalf("expected non-empty encoding")
	}

	// A structurally valid message must fully consume as a sequence of
	// (tag, field) pairs with no leftover or malformed bytes.
	data := encoded
	sawClientAbrState := false
	sawVideoFormat := false
	sawStreamerContext := false
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			t.Fatalf("malformed tag in encoded request: %v", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				t.Fatalf("malformed client_abr_state bytes: %v", protowire.ParseError(n))
			}
			sawClientAbrState = true
			data = data[n:]
			_ = v
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				t.Fatalf("malformed player_time_ms: %v", protowire.ParseError(n))
			}
			if v != 0 {
				t.Fatalf("expected top-level player_time_ms = 0, got %d", v)
			}
			data = data[n:]
		case num == 17 && typ == protowire.BytesType:
			_, n := protowire.ConsumeBytes(data)
			if n < 0 {
				t.Fatalf("malformed selected video format: %v", protowire.ParseError(n))
			}
			sawVideoFormat = true
			data = data[n:]
		case num == 19 && typ == protowire.BytesType:
			_, n := protowire.ConsumeBytes(data)
			if n < 0 {
				t.Fatalf("malformed streamer_context: %v", protowire.ParseError(n))
			}
			sawStreamerContext = true
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				t.Fatalf("malformed unknown field %d: %v", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if !sawClientAbrState || !sawVideoFormat || !sawStreamerContext {
		t.Fatalf("missing expected top-level fields: abr=%v video=%v ctx=%v", sawClientAbrState, sawVideoFormat, sawStreamerContext)
	}
}

func TestClientAbrStateMarshalPreservesPreferVp9AndIsPrefetchSeparately(t *testing.T) {
	s := ClientAbrState{
		PreferVp9:  func() *bool { b := true; return &b }(),
		IsPrefetch: func() *bool { b := false; return &b }(),
	}
	encoded := s.Marshal()

	sawTag58, sawTag61 := false, false
	data := encoded
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			t.Fatalf("malformed tag: %v", protowire.ParseError(n))
		}
		data = data[n:]
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			t.Fatalf("malformed varint for tag %d: %v", num, protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.VarintType {
			continue
		}
		switch num {
		case 58:
			sawTag58 = true
			if v != 1 {
				t.Fatalf("expected prefer_vp9=true at tag 58, got %d", v)
			}
		case 61:
			sawTag61 = true
			if v != 0 {
				t.Fatalf("expected is_prefetch=false at tag 61, got %d", v)
			}
		}
	}
	if !sawTag58 || !sawTag61 {
		t.Fatalf("expected both tag 58 (prefer_vp9) and tag 61 (is_prefetch) present")
	}
}

func TestNewFormatIdOmitsEmptyXtags(t *testing.T) {
	fid := NewFormatId(137, 2000, "")
	if fid.Xtags != nil {
		t.Fatalf("expected nil xtags for empty string, got %+v", fid.Xtags)
	}
	fid2 := NewFormatId(137, 2000, "Range/0-100")
	if fid2.Xtags == nil || *fid2.Xtags != "Range/0-100" {
		t.Fatalf("expected xtags to be set, got %+v", fid2.Xtags)
	}
}
