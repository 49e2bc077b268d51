package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/pannpers/go-logging/logging"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/catalog"
	"github.com/liverty-music/backend/internal/infrastructure/render"
	"github.com/liverty-music/backend/internal/infrastructure/rks"
	"github.com/liverty-music/backend/internal/infrastructure/save"
	"github.com/liverty-music/backend/internal/infrastructure/stats"
)

// RenderOptions carries the "common image query" parameters shared by
// every /image/* route (spec.md §6.1).
type RenderOptions struct {
	TemplateID    string
	Format        render.Format
	Width         int
	EmbedImages   bool
	OptimizeSpeed bool
	WebPQuality   int
}

// UserReportedScore is one item of the self-reported score list accepted
// by `/image/bn/user` (spec.md §4.4.7).
type UserReportedScore struct {
	Song       string
	Difficulty entity.Difficulty
	Acc        float64
	Score      int32
}

// ImageUseCase implements ImageRenderer orchestration (spec.md §4.4): it
// resolves song metadata and RKS data into a render.TemplateContext and
// delegates rasterization/encoding/caching to the render package.
type ImageUseCase interface {
	// RenderBN renders the BestN summary image for creds' cloud save.
	RenderBN(ctx context.Context, creds save.Credentials, playerNameXML string, opts RenderOptions) (*render.Result, error)

	// RenderSong renders a single-chart card for songID/difficulty from
	// creds' cloud save.
	//
	// # Possible errors
	//
	//  - NotFound: songID is unknown, or creds have no record for it.
	RenderSong(ctx context.Context, creds save.Credentials, songID string, difficulty entity.Difficulty, playerNameXML string, opts RenderOptions) (*render.Result, error)

	// RenderBNUser renders a BestN image from a self-reported score list,
	// per spec.md §4.4.7: up to `image.maxUserScores` items, each
	// resolved through the catalog with unique=true, dropping items with
	// unknown chart constants. unlockPassword gates the watermark.
	//
	// # Possible errors
	//
	//  - InvalidArgument: a song reference is ambiguous, unknown, or the
	//    list exceeds maxUserScores.
	RenderBNUser(ctx context.Context, playerNameXML string, scores []UserReportedScore, unlockPassword string, opts RenderOptions) (*render.Result, error)
}

type imageUseCase struct {
	provider     *save.Provider
	renderer     *render.Renderer
	catalog      *catalog.Catalog
	hasher       *stats.Hasher
	illustration map[string]string

	publicBaseURL       string
	illustrationFolder  string
	illustrationRepoDir string

	watermark     render.WatermarkConfig
	maxUserScores int

	logger *logging.Logger
}

var _ ImageUseCase = (*imageUseCase)(nil)

// NewImageUseCase creates a new image use case. illustrationInfoPath
// points at the optional JSON mapping of songId → illustration filename
// (spec.md §6.4 `resources.infoPath`); a missing or empty path yields an
// empty index, matching the tolerant-missing-resource style of the
// catalog package's own alias loader.
func NewImageUseCase(
	provider *save.Provider,
	renderer *render.Renderer,
	cat *catalog.Catalog,
	hasher *stats.Hasher,
	illustrationInfoPath string,
	publicBaseURL, illustrationFolder, illustrationRepoDir string,
	watermark render.WatermarkConfig,
	maxUserScores int,
	logger *logging.Logger,
) ImageUseCase {
	if maxUserScores <= 0 {
		maxUserScores = 200
	}
	return &imageUseCase{
		provider:            provider,
		renderer:            renderer,
		catalog:             cat,
		hasher:              hasher,
		illustration:        loadIllustrationIndex(illustrationInfoPath),
		publicBaseURL:       publicBaseURL,
		illustrationFolder:  illustrationFolder,
		illustrationRepoDir: illustrationRepoDir,
		watermark:           watermark,
		maxUserScores:       maxUserScores,
		logger:              logger,
	}
}

// loadIllustrationIndex reads a JSON object mapping songId → illustration
// filename. A missing file is tolerated (spec.md treats illustration-repo
// management as an external collaborator); any other read/parse failure
// is also tolerated, since a broken mapping degrades to "no illustration"
// rather than failing every image render.
func loadIllustrationIndex(path string) map[string]string {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

func (uc *imageUseCase) illustrationOf(songID string) string {
	return uc.illustration[songID]
}

func (uc *imageUseCase) dataFetcher(path string) ([]byte, string, error) {
	b, err := os.ReadFile(uc.illustrationRepoDir + "/" + path)
	if err != nil {
		return nil, "", err
	}
	return b, "image/png", nil
}

func (uc *imageUseCase) illustrationRef(ctx context.Context, songID string, format render.Format, embed bool) string {
	file := uc.illustrationOf(songID)
	if file == "" {
		return ""
	}
	// SVG output always references illustrations by public URL (spec.md
	// §4.4.3). The renderer returns SVG text unchanged, so embedImages is
	// forced to false for SVG here.
	if format == render.FormatSVG {
		embed = false
	}
	ref, err := render.IllustrationRef(uc.publicBaseURL, uc.illustrationFolder, file, embed, uc.dataFetcher)
	if err != nil {
		uc.logger.Warn(ctx, "failed to resolve illustration reference", slog.String("song_id", songID), slog.Any("error", err))
		return ""
	}
	return ref
}

func (uc *imageUseCase) userHashOf(creds save.Credentials) string {
	if uc.hasher == nil {
		return ""
	}
	stableID := stats.StableID(creds.SessionToken, creds.APIUserID, creds.ExternalSessionToken, creds.Platform, creds.PlatformID)
	return uc.hasher.Hash(stableID)
}

func (uc *imageUseCase) requestOf(kind string, tplCtx render.TemplateContext, contentKey, userHash string, saveUpdatedAt time.Time, opts RenderOptions) render.Request {
	return render.Request{
		Kind:          kind,
		TemplateID:    render.NormalizeTemplateID(opts.TemplateID),
		Context:       tplCtx,
		ContentKey:    contentKey,
		Format:        opts.Format,
		Width:         opts.Width,
		EmbedImages:   opts.EmbedImages,
		OptimizeSpeed: opts.OptimizeSpeed,
		WebPQuality:   opts.WebPQuality,
		UserHash:      userHash,
		SaveUpdatedAt: saveUpdatedAt,
	}
}

func (uc *imageUseCase) RenderBN(ctx context.Context, creds save.Credentials, playerNameXML string, opts RenderOptions) (*render.Result, error) {
	fetched, err := uc.provider.Fetch(ctx, creds)
	if err != nil {
		return nil, err
	}

	candidates := flattenCandidates(fetched.Save, uc.catalog)
	playerRks := rks.Select(candidates, rks.DefaultBestK)
	watermarked := uc.watermark.ExplicitBadge || uc.watermark.ImplicitPixel

	bnCtx := render.NewBNContext(
		playerNameXML,
		playerRks,
		uc.catalog.ConstantOf,
		uc.catalog.Lookup,
		func(songID string) string { return uc.illustrationRef(ctx, songID, opts.Format, opts.EmbedImages) },
		fetched.Save.UpdatedAt.UTC().Format(time.RFC3339),
		"",
		watermarked,
	)

	userHash := uc.userHashOf(creds)
	req := uc.requestOf("bn", bnCtx, contentKeyOf(playerRks), userHash, fetched.Save.UpdatedAt, opts)
	result, err := uc.renderer.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	uc.logger.Info(ctx, "bn image rendered", slog.String("user_hash", userHash), slog.String("format", string(req.Format)))
	return &result, nil
}

func (uc *imageUseCase) RenderSong(ctx context.Context, creds save.Credentials, songID string, difficulty entity.Difficulty, playerNameXML string, opts RenderOptions) (*render.Result, error) {
	song := uc.catalog.Lookup(songID)
	if song == nil {
		return nil, apperrx.New(codes.NotFound, "NotFound", "song not found")
	}

	fetched, err := uc.provider.Fetch(ctx, creds)
	if err != nil {
		return nil, err
	}

	records, ok := fetched.Save.GameRecord[songID]
	if !ok {
		return nil, apperrx.New(codes.NotFound, "NotFound", "no record for this chart")
	}
	record := records[difficulty]
	if record == nil {
		return nil, apperrx.New(codes.NotFound, "NotFound", "no record for this chart")
	}

	constant := uc.catalog.ConstantOf(songID, difficulty)
	illustration := uc.illustrationRef(ctx, songID, opts.Format, opts.EmbedImages)

	songCtx := render.SongContext{
		SongNameXML:    escapeXMLField(song.Name),
		ComposerXML:    escapeXMLField(song.Composer),
		IllustratorXML: escapeXMLField(song.Illustrator),
		Illustration:   illustration,
		Rows: []render.ChartRow{{
			SongNameXML: escapeXMLField(song.Name),
			Composer:    escapeXMLField(song.Composer),
			Difficulty:  difficulty.String(),
			Constant:    constant,
			Acc:         record.Acc,
			Score:       record.Score,
			Rks:         rks.Chart(record.Acc, constant),
			IsFC:        record.IsFC,
			IsPhi:       record.IsPhi,
		}},
	}

	userHash := uc.userHashOf(creds)
	req := uc.requestOf("song", songCtx, songID+"|"+difficulty.String(), userHash, fetched.Save.UpdatedAt, opts)
	result, err := uc.renderer.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	uc.logger.Info(ctx, "song image rendered", slog.String("user_hash", userHash), slog.String("song_id", songID))
	return &result, nil
}

func (uc *imageUseCase) RenderBNUser(ctx context.Context, playerNameXML string, scores []UserReportedScore, unlockPassword string, opts RenderOptions) (*render.Result, error) {
	if len(scores) > uc.maxUserScores {
		return nil, apperrx.New(codes.InvalidArgument, "TooManyScores", "score list exceeds the configured maximum")
	}

	var candidates []rks.Candidate
	for _, s := range scores {
		res := uc.catalog.Search(s.Song, catalog.SearchOptions{Unique: true})
		if res.NotFound {
			return nil, apperrx.New(codes.InvalidArgument, "UnknownSong", "song reference does not match any known song")
		}
		if res.Ambiguous != nil {
			return nil, apperrx.New(codes.InvalidArgument, "AmbiguousSong", "song reference matches more than one song")
		}
		song := res.Unique
		constant := uc.catalog.ConstantOf(song.ID, s.Difficulty)
		if constant <= 0 {
			continue
		}
		candidates = append(candidates, rks.Candidate{
			Record:   entity.Record{SongID: song.ID, Difficulty: s.Difficulty, Acc: s.Acc, Score: s.Score, IsPhi: s.Acc == 100.0},
			Constant: constant,
		})
	}

	playerRks := rks.Select(candidates, rks.DefaultBestK)

	now := time.Now()
	unlocked := render.Unlocked(uc.watermark, unlockPassword, now.Unix())
	watermarked := !unlocked && (uc.watermark.ExplicitBadge || uc.watermark.ImplicitPixel)

	bnCtx := render.NewBNContext(
		playerNameXML,
		playerRks,
		uc.catalog.ConstantOf,
		uc.catalog.Lookup,
		func(songID string) string { return uc.illustrationRef(ctx, songID, opts.Format, opts.EmbedImages) },
		now.UTC().Format(time.RFC3339),
		"",
		watermarked,
	)

	// Self-reported renders have no save-backed user hash or
	// saveUpdatedAt; the content key alone (derived from the score list's
	// resulting RKS) is sufficient to scope the cache entry, since there
	// is no stored player identity to leak across (spec.md §4.4.7).
	req := uc.requestOf("bn", bnCtx, contentKeyOf(playerRks), "", time.Time{}, opts)
	result, err := uc.renderer.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	uc.logger.Info(ctx, "self-reported bn image rendered", slog.Int("score_count", len(scores)), slog.Bool("watermarked", watermarked))
	return &result, nil
}

// flattenCandidates mirrors saveUseCase.computeRks's flattening but is
// kept local here to avoid an image/save cross-import for one small loop.
func flattenCandidates(parsed *entity.ParsedSave, cat *catalog.Catalog) []rks.Candidate {
	var candidates []rks.Candidate
	if parsed == nil {
		return candidates
	}
	for songID, records := range parsed.GameRecord {
		for _, r := range records {
			if r == nil {
				continue
			}
			constant := cat.ConstantOf(songID, r.Difficulty)
			if constant <= 0 {
				continue
			}
			candidates = append(candidates, rks.Candidate{Record: *r, Constant: constant})
		}
	}
	return candidates
}

// contentKeyOf derives the render cache's ContentKey from a computed
// PlayerRks, the same sha256-digest style render.Fingerprint itself uses.
func contentKeyOf(pr entity.PlayerRks) string {
	b, _ := json.Marshal(pr)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// xmlReplacer mirrors render's own _xml escaping (spec.md §4.4.2); render
// does not export its escapeXML helper, so SongContext's fields (which
// have no constructor like BNContext's NewBNContext) are escaped here
// with the identical replacement set.
var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeXMLField(s string) string {
	return xmlReplacer.Replace(s)
}
