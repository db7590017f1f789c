package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

// ErrInvalidDocument is returned when a stored library document cannot be
// decoded or fails structural validation.
var ErrInvalidDocument = fmt.Errorf("invalid library document: %w", apperr.ErrInvalid)

// Encode serialises doc, stamping the current schema version.
func Encode(doc models.Library) ([]byte, error) {
	if doc.Nodes == nil {
		doc.Nodes = []models.Node{}
	}
	if doc.Files == nil {
		doc.Files = []models.File{}
	}
	if doc.Tags == nil {
		doc.Tags = []models.Tag{}
	}
	doc.Version = models.SchemaVersion
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode library: %w", err)
	}
	return data, nil
}

// Decode parses and validates a library document. Missing collections
// decode as empty. Every failure wraps ErrInvalidDocument.
func Decode(data []byte) (models.Library, error) {
	var doc models.Library
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Library{}, errors.Join(ErrInvalidDocument, err)
	}
	if err := Validate(doc); err != nil {
		return models.Library{}, errors.Join(ErrInvalidDocument, err)
	}
	if doc.Nodes == nil {
		doc.Nodes = []models.Node{}
	}
	if doc.Files == nil {
		doc.Files = []models.File{}
	}
	if doc.Tags == nil {
		doc.Tags = []models.Tag{}
	}
	return doc, nil
}

// Validate checks the structure of doc: supported version, required fields,
// known node variants, unique ids, dense node indexes, parent references
// that name the root, the trash or a stored directory, and owned files that
// exist and belong to exactly one node.
func Validate(doc models.Library) error {
	fileIDs := make(map[string]bool, len(doc.Files))
	for _, f := range doc.Files {
		fileIDs[f.ID] = true
	}
	return validation.Errors{
		"version": validation.Validate(doc.Version, validation.Min(0), validation.Max(models.SchemaVersion)),
		"nodes":   validateNodes(doc.Nodes, fileIDs),
		"files":   validateFiles(doc.Files),
		"tags":    validateTags(doc.Tags),
	}.Filter()
}

func validateNodes(nodes []models.Node, fileIDs map[string]bool) error {
	dirs := make(map[string]bool)
	for _, n := range nodes {
		if n.IsDirectory() {
			dirs[n.ID] = true
		}
	}
	ids := make(map[string]bool, len(nodes))
	indexes := make(map[int]bool, len(nodes))
	owned := make(map[string]bool)

	errs := validation.Errors{}
	for i, n := range nodes {
		_, isDir := n.Body.(models.Directory)
		_, isImage := n.Body.(models.Image)
		_, isAnchor := n.Body.(models.Anchor)
		name, _ := n.DirectoryName()
		var fileID, url, preview string
		switch b := n.Body.(type) {
		case models.Image:
			fileID = b.FileID
		case models.Anchor:
			url = b.ContentURL
			preview = b.ContentImageFileID
		}

		errs[strconv.Itoa(i)] = validation.Errors{
			"id": validation.Validate(n.ID,
				validation.Required,
				validation.NotIn(models.TrashID),
				validation.By(unique(ids)),
			),
			"type": validation.Validate(n.Type(),
				validation.Required,
				validation.In(models.TypeText, models.TypeImage, models.TypeAnchor, models.TypeDirectory),
			),
			"index": validation.Validate(n.Index,
				validation.Min(0),
				validation.Max(len(nodes)-1),
				validation.By(uniqueIndex(indexes)),
			),
			"parentID": validation.Validate(n.ParentID, validation.By(func(value any) error {
				p, _ := value.(string)
				if p == "" || p == models.TrashID || dirs[p] {
					return nil
				}
				return errors.New("must be empty, the trash or a directory id")
			})),
			"name": validation.Validate(name, validation.When(isDir, validation.Required)),
			"fileID": validation.Validate(fileID,
				validation.When(isImage, validation.Required),
				validation.By(ownedFile(fileIDs, owned)),
			),
			"contentURL":         validation.Validate(url, validation.When(isAnchor, validation.Required)),
			"contentImageFileID": validation.Validate(preview, validation.By(ownedFile(fileIDs, owned))),
		}.Filter()
	}
	return errs.Filter()
}

func validateFiles(files []models.File) error {
	ids := make(map[string]bool, len(files))
	errs := validation.Errors{}
	for i, f := range files {
		errs[strconv.Itoa(i)] = validation.Errors{
			"id": validation.Validate(f.ID, validation.Required, validation.By(unique(ids))),
		}.Filter()
	}
	return errs.Filter()
}

func validateTags(tags []models.Tag) error {
	ids := make(map[string]bool, len(tags))
	errs := validation.Errors{}
	for i, t := range tags {
		errs[strconv.Itoa(i)] = validation.Errors{
			"id":   validation.Validate(t.ID, validation.Required, validation.By(unique(ids))),
			"name": validation.Validate(t.Name, validation.Required),
		}.Filter()
	}
	return errs.Filter()
}

func unique(seen map[string]bool) validation.RuleFunc {
	return func(value any) error {
		id, _ := value.(string)
		if seen[id] {
			return errors.New("must be unique")
		}
		seen[id] = true
		return nil
	}
}

// ownedFile checks that a non-empty file id names a stored file not already
// claimed by another node.
func ownedFile(files, owned map[string]bool) validation.RuleFunc {
	return func(value any) error {
		id, _ := value.(string)
		if id == "" {
			return nil
		}
		if !files[id] {
			return errors.New("must name a stored file")
		}
		if owned[id] {
			return errors.New("file is owned by another node")
		}
		owned[id] = true
		return nil
	}
}

func uniqueIndex(seen map[int]bool) validation.RuleFunc {
	return func(value any) error {
		i, _ := value.(int)
		if seen[i] {
			return errors.New("must be unique")
		}
		seen[i] = true
		return nil
	}
}
