package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/alecthomas/types/optional"

	"github.com/spotify/android-store-service/backend/publish"
	"github.com/spotify/android-store-service/internal/log"
	"github.com/spotify/android-store-service/internal/model"
)

type binaryPayload struct {
	SHA1              string  `json:"sha1"`
	SHA256            string  `json:"sha256"`
	MediaBody         string  `json:"media_body"`
	DeobfuscationFile *string `json:"deobfuscation_file"`
}

type buildsPayload struct {
	Tracks  []string        `json:"tracks"`
	Bundles []binaryPayload `json:"bundles"`
	APKs    []binaryPayload `json:"apks"`
	DryRun  bool            `json:"dry_run"`
}

type linkPayload struct {
	SHA256                string  `json:"sha256"`
	MediaBodyLink         string  `json:"media_body_link"`
	DeobfuscationFileLink *string `json:"deobfuscation_file_link"`
}

type linksPayload struct {
	Tracks  []string      `json:"tracks"`
	Bundles []linkPayload `json:"bundles"`
	APKs    []linkPayload `json:"apks"`
	DryRun  bool          `json:"dry_run"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type tracksResponse struct {
	Tracks []model.Track `json:"tracks"`
}

func (s *Service) status(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	log.FromContext(r.Context()).Debugf("Status: ok")
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	return nil
}

func (s *Service) builds(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	pkg, err := model.ParsePackageName(params["package"])
	if err != nil {
		return err
	}
	var payload buildsPayload
	if err := s.decode(r, "builds", &payload); err != nil {
		return err
	}
	kind, err := selectKind(len(payload.Bundles), len(payload.APKs), len(payload.Tracks))
	if err != nil {
		return err
	}
	binaries := payload.APKs
	if kind == model.AppBundle {
		binaries = payload.Bundles
	}
	return s.publish(w, r, "binaries", publish.Request{
		Package: pkg,
		Kind:    kind,
		Tracks:  payload.Tracks,
		DryRun:  payload.DryRun,
	}, publish.Binaries(toBinaries(binaries)))
}

func (s *Service) bundles(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	return s.publishKind(w, r, params, model.AppBundle, "bundles")
}

func (s *Service) apks(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	return s.publishKind(w, r, params, model.APK, "apks")
}

// publishKind serves the single-kind endpoints, whose schema requires a
// non-empty list of binaries of that kind.
func (s *Service) publishKind(w http.ResponseWriter, r *http.Request, params map[string]string, kind model.BinaryKind, noun string) error {
	pkg, err := model.ParsePackageName(params["package"])
	if err != nil {
		return err
	}
	var payload buildsPayload
	if err := s.decode(r, noun, &payload); err != nil {
		return err
	}
	binaries := payload.APKs
	if kind == model.AppBundle {
		binaries = payload.Bundles
	}
	return s.publish(w, r, noun, publish.Request{
		Package: pkg,
		Kind:    kind,
		Tracks:  payload.Tracks,
		DryRun:  payload.DryRun,
	}, publish.Binaries(toBinaries(binaries)))
}

func (s *Service) links(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	pkg, err := model.ParsePackageName(params["package"])
	if err != nil {
		return err
	}
	var payload linksPayload
	if err := s.decode(r, "links", &payload); err != nil {
		return err
	}
	kind, err := selectKind(len(payload.Bundles), len(payload.APKs), len(payload.Tracks))
	if err != nil {
		return err
	}
	links := payload.APKs
	if kind == model.AppBundle {
		links = payload.Bundles
	}
	binaries := make([]model.LinkedBinary, 0, len(links))
	for _, link := range links {
		binaries = append(binaries, model.LinkedBinary{
			SHA256:                link.SHA256,
			MediaBodyLink:         link.MediaBodyLink,
			DeobfuscationFileLink: nonEmpty(link.DeobfuscationFileLink),
		})
	}
	return s.publish(w, r, "binaries", publish.Request{
		Package: pkg,
		Kind:    kind,
		Tracks:  payload.Tracks,
		DryRun:  payload.DryRun,
	}, publish.Links(binaries))
}

func (s *Service) tracks(w http.ResponseWriter, r *http.Request, params map[string]string) error {
	pkg, err := model.ParsePackageName(params["package"])
	if err != nil {
		return err
	}
	tracks, err := s.lister.List(r.Context(), pkg)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, tracksResponse{Tracks: tracks})
	return nil
}

func (s *Service) publish(w http.ResponseWriter, r *http.Request, noun string, req publish.Request, source publish.Source) error {
	ctx := r.Context()
	versionCodes, err := s.publisher.Publish(ctx, req, source)
	if err != nil {
		return err
	}
	logPublished(ctx, noun, req, versionCodes)
	writeJSON(w, http.StatusOK, versionCodes)
	return nil
}

func logPublished(ctx context.Context, noun string, req publish.Request, versionCodes []model.VersionCode) {
	codes := make([]string, 0, len(versionCodes))
	for _, code := range versionCodes {
		codes = append(codes, fmt.Sprint(code))
	}
	log.FromContext(ctx).Infof("Successfully uploaded new %s for %s to Google Play. Tracks: %s. Version codes: %s",
		noun, req.Package, strings.Join(req.Tracks, ", "), strings.Join(codes, ", "))
}

// selectKind picks the binary kind of a mixed builds payload.
func selectKind(bundles, apks, tracks int) (model.BinaryKind, error) {
	switch {
	case bundles == 0 && apks == 0 && tracks == 0:
		return 0, validationErrorf("No payload")
	case bundles == 0 && apks == 0:
		return 0, validationErrorf("No binaries")
	case bundles > 0 && apks > 0:
		return 0, validationErrorf("Invalid payload. Cannot mix apks and bundles.")
	case bundles > 0:
		return model.AppBundle, nil
	default:
		return model.APK, nil
	}
}

func toBinaries(payloads []binaryPayload) []model.Binary {
	binaries := make([]model.Binary, 0, len(payloads))
	for _, p := range payloads {
		binaries = append(binaries, model.Binary{
			SHA1:              p.SHA1,
			SHA256:            p.SHA256,
			MediaBody:         p.MediaBody,
			DeobfuscationFile: nonEmpty(p.DeobfuscationFile),
		})
	}
	return binaries
}

// nonEmpty treats an empty string the same as an absent one.
func nonEmpty(s *string) optional.Option[string] {
	if s == nil || *s == "" {
		return optional.None[string]()
	}
	return optional.Some(*s)
}

func (s *Service) decode(r *http.Request, schema string, v any) error {
	body := requestFromContext(r.Context()).body
	if len(body) == 0 {
		return validationErrorf("Invalid JSON body: empty")
	}
	return s.schemas.decode(schema, body, v)
}
