package save

import (
	"context"
	"encoding/hex"
	"net/http"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
)

// Provider fetches, decompresses, decrypts, and decodes a player's cloud
// save, implementing the full pipeline of spec.md §4.2.
type Provider struct {
	endpoint string
	key      [16]byte
	client   *http.Client
}

// NewProvider builds a Provider that queries endpoint for save locations
// and decrypts entries with key.
func NewProvider(endpoint string, key [16]byte) *Provider {
	return &Provider{
		endpoint: endpoint,
		key:      key,
		client:   newFetchClient(),
	}
}

// FetchResult is the save provider's top-level output: the parsed save
// plus the summary blob returned alongside the download URL.
type FetchResult struct {
	Save    *entity.ParsedSave
	Summary *entity.SaveSummary
}

// Fetch runs the full pipeline: validate credentials, query the identity
// provider, download the container, decompress it, decrypt each entry,
// and decode gameRecord (spec.md §4.2.1–§4.2.6).
func (p *Provider) Fetch(ctx context.Context, creds Credentials) (*FetchResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	fetched, err := queryProvider(ctx, p.client, p.endpoint, creds)
	if err != nil {
		return nil, err
	}

	summary, err := decodeSummary(fetched.Summary)
	if err != nil {
		return nil, err
	}

	raw, err := downloadSave(ctx, p.client, fetched.DownloadURL)
	if err != nil {
		return nil, err
	}

	entries, err := openContainer(raw)
	if err != nil {
		return nil, err
	}

	parsed := &entity.ParsedSave{
		GameRecord:    make(map[string][4]*entity.Record),
		SummaryParsed: summary,
		UpdatedAt:     fetched.UpdatedAt,
	}

	if raw, ok := entries["user"]; ok {
		version, plaintext, err := decryptEntry(p.key, raw)
		if err != nil {
			return nil, err
		}
		parsed.User = &entity.SaveUser{Version: version, Payload: plaintext}
	}

	if raw, ok := entries["gameKey"]; ok {
		version, plaintext, err := decryptEntry(p.key, raw)
		if err != nil {
			return nil, err
		}
		parsed.GameKey = &entity.GameKey{Version: version, Payload: plaintext}
	}

	if raw, ok := entries["settings"]; ok {
		version, plaintext, err := decryptEntry(p.key, raw)
		if err != nil {
			return nil, err
		}
		parsed.Settings = &entity.SaveSettings{Version: version, Payload: plaintext}
	}

	if raw, ok := entries["gameProgress"]; ok {
		version, plaintext, err := decryptEntry(p.key, raw)
		if err != nil {
			return nil, err
		}
		parsed.GameProgress = &entity.GameProgress{Version: version, Payload: plaintext}
	}

	if raw, ok := entries["gameRecord"]; ok {
		_, plaintext, err := decryptEntry(p.key, raw)
		if err != nil {
			return nil, err
		}
		records, err := decodeGameRecord(plaintext)
		if err != nil {
			return nil, err
		}
		parsed.GameRecord = records
	}

	return &FetchResult{Save: parsed, Summary: summary}, nil
}

// DecodeAESKeyHex decodes a 32-hex-char configured key into its 16-byte
// form (Open Question OQ-1: "the key is supplied via Config.Save.AesKeyHex").
func DecodeAESKeyHex(hexKey string) ([16]byte, error) {
	var key [16]byte
	n, err := hex.Decode(key[:], []byte(hexKey))
	if err != nil {
		return key, apperrx.Wrap(err, codes.InvalidArgument, "InvalidConfig", "save AES key is not valid hex")
	}
	if n != 16 {
		return key, apperrx.New(codes.InvalidArgument, "InvalidConfig", "save AES key must decode to exactly 16 bytes")
	}
	return key, nil
}
