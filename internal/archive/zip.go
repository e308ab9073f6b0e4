package archive

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"

	"dysk-osobisty/internal/models"

	"github.com/klauspost/compress/zip"
)

// NodeLister dostarcza żywe (nie będące w koszu) dzieci folderu.
type NodeLister interface {
	ListLiveChildren(ctx context.Context, ownerID int64, parentID string) ([]models.Node, error)
}

// BlobGetter czyta zawartość plików z magazynu blobów.
type BlobGetter interface {
	Get(id string) (io.ReadCloser, error)
	Exists(id string) bool
}

type stackEntry struct {
	folderID string
	prefix   string
}

// WriteFolderZip strumieniuje poddrzewo folderu jako archiwum zip (deflate).
// Ścieżki wpisów są względne wobec eksportowanego korzenia. Puste foldery nie
// tworzą wpisów. Obejście iteracyjne na jawnym stosie - głębokie drzewa nie
// mogą przepełnić stosu wywołań. Plik bez blobu w magazynie jest pomijany,
// żeby jedna dziura nie blokowała eksportu reszty.
func WriteFolderZip(ctx context.Context, w io.Writer, nodes NodeLister, blobs BlobGetter, ownerID int64, root *models.Node) error {
	if !root.IsFolder() {
		return fmt.Errorf("node %s is not a folder", root.ID)
	}

	zw := zip.NewWriter(w)

	stack := []stackEntry{{folderID: root.ID, prefix: ""}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}

		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := nodes.ListLiveChildren(ctx, ownerID, entry.folderID)
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to list children of %s: %w", entry.folderID, err)
		}

		for _, child := range children {
			if child.IsFolder() {
				stack = append(stack, stackEntry{
					folderID: child.ID,
					prefix:   path.Join(entry.prefix, child.Name),
				})
				continue
			}

			if !blobs.Exists(child.ID) {
				log.Printf("WARN: blob for node %s missing from storage, skipping in archive", child.ID)
				continue
			}

			if err := writeFileEntry(zw, blobs, entry.prefix, &child); err != nil {
				zw.Close()
				return err
			}
		}
	}

	return zw.Close()
}

func writeFileEntry(zw *zip.Writer, blobs BlobGetter, prefix string, node *models.Node) error {
	header := &zip.FileHeader{
		Name:     path.Join(prefix, node.Name),
		Method:   zip.Deflate,
		Modified: node.ModifiedAt,
	}

	entryWriter, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create archive entry for %s: %w", node.ID, err)
	}

	blob, err := blobs.Get(node.ID)
	if err != nil {
		return fmt.Errorf("failed to open blob for %s: %w", node.ID, err)
	}
	defer blob.Close()

	if _, err := io.Copy(entryWriter, blob); err != nil {
		return fmt.Errorf("failed to write archive entry for %s: %w", node.ID, err)
	}

	return nil
}
