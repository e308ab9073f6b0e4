package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"dysk-osobisty/internal/auth"
	"dysk-osobisty/internal/database"
	"dysk-osobisty/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// Funkcja pomocnicza do tworzenia węzłów w testach API
func createTestNodeAPI(t *testing.T, name, nodeType string, parentID *string, ownerID int64) *models.Node {
	id, err := testServer.generateUniqueID(context.Background())
	require.NoError(t, err)

	var sizeBytes *int64
	if nodeType == "file" {
		var s int64 = 1234
		sizeBytes = &s
	}

	params := database.CreateNodeParams{
		ID:        id,
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		NodeType:  nodeType,
		SizeBytes: sizeBytes,
	}
	node, err := testServer.store.CreateNode(context.Background(), params)
	require.NoError(t, err)
	return node
}

// Funkcja pomocnicza: osobny użytkownik z własnym limitem miejsca
func createTestUserAPI(t *testing.T, username string, quotaBytes int64) *auth.AppClaims {
	var userID int64
	err := testServer.store.GetPool().QueryRow(context.Background(),
		`INSERT INTO users (username, password_hash, storage_quota_bytes) VALUES ($1, 'hash', $2) RETURNING id`,
		username, quotaBytes).Scan(&userID)
	require.NoError(t, err)
	return &auth.AppClaims{UserID: userID, Username: username}
}

// Funkcja pomocnicza: żądanie z claimsami i parametrem ścieżki chi
func authRequest(req *http.Request, claims *auth.AppClaims, urlParams map[string]string) *http.Request {
	ctx := context.WithValue(req.Context(), userContextKey, claims)
	if len(urlParams) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range urlParams {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func TestAPI_CreateFolder_Success(t *testing.T) {
	payload := CreateFolderRequest{Name: "Nowy_Folder_Sukces"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	req = authRequest(req, testUserClaims, nil)
	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var createdNode models.Node
	err := json.Unmarshal(rr.Body.Bytes(), &createdNode)
	require.NoError(t, err)
	require.Equal(t, "Nowy_Folder_Sukces", createdNode.Name)
	require.Equal(t, "folder", createdNode.NodeType)
}

func TestAPI_CreateFolder_EmptyName(t *testing.T) {
	payload := CreateFolderRequest{Name: "  "}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	req = authRequest(req, testUserClaims, nil)
	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_CreateFolder_NameConflict(t *testing.T) {
	folderName := "Folder_Konfliktowy_Final"
	createTestNodeAPI(t, folderName, "folder", nil, testUserClaims.UserID)

	payload := CreateFolderRequest{Name: folderName}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	req = authRequest(req, testUserClaims, nil)
	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)

	// Liczba folderów o tej nazwie nie wzrosła
	var count int
	err := testServer.store.GetPool().QueryRow(context.Background(),
		"SELECT count(*) FROM nodes WHERE name=$1 AND owner_id=$2 AND parent_id IS NULL",
		folderName, testUserClaims.UserID).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestAPI_CreateFolder_MissingParent(t *testing.T) {
	missing := "zzzzzzzzzzzzzzzzzzzzz"
	payload := CreateFolderRequest{Name: "Sierota", ParentID: &missing}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/api/v1/nodes/folder", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	req = authRequest(req, testUserClaims, nil)
	http.HandlerFunc(testServer.CreateFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_ListNodes(t *testing.T) {
	claims := createTestUserAPI(t, "api_list_nodes_user", 1<<30)

	folder := createTestNodeAPI(t, "Folder_Listowany", "folder", nil, claims.UserID)
	createTestNodeAPI(t, "plik_w_folderze.txt", "file", &folder.ID, claims.UserID)
	createTestNodeAPI(t, "plik_w_root.txt", "file", nil, claims.UserID)

	// Root
	req := httptest.NewRequest("GET", "/api/v1/nodes", nil)
	rr := httptest.NewRecorder()
	req = authRequest(req, claims, nil)
	http.HandlerFunc(testServer.ListNodesHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var rootNodes []models.Node
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rootNodes))
	require.Len(t, rootNodes, 2)
	require.Equal(t, "Folder_Listowany", rootNodes[0].Name)

	// Wnętrze folderu
	req = httptest.NewRequest("GET", "/api/v1/nodes?parent_id="+folder.ID, nil)
	rr = httptest.NewRecorder()
	req = authRequest(req, claims, nil)
	http.HandlerFunc(testServer.ListNodesHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var children []models.Node
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &children))
	require.Len(t, children, 1)
	require.Equal(t, "plik_w_folderze.txt", children[0].Name)
}

func uploadRequest(t *testing.T, filename string, content []byte, parentID string) *http.Request {
	return uploadRequestWithType(t, filename, "", content, parentID)
}

func uploadRequestWithType(t *testing.T, filename, mimeType string, content []byte, parentID string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if mimeType != "" {
		header.Set("Content-Type", mimeType)
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	if parentID != "" {
		require.NoError(t, writer.WriteField("parent_id", parentID))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/nodes/file", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestAPI_UploadFile_Success(t *testing.T) {
	claims := createTestUserAPI(t, "api_upload_user", 1<<30)

	content := []byte("zawartość testowego pliku")
	req := uploadRequest(t, "upload.txt", content, "")
	rr := httptest.NewRecorder()
	req = authRequest(req, claims, nil)
	http.HandlerFunc(testServer.UploadFileHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var node models.Node
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &node))
	require.Equal(t, "upload.txt", node.Name)
	require.NotNil(t, node.SizeBytes)
	require.Equal(t, int64(len(content)), *node.SizeBytes)

	// Licznik zajętości urósł o rozmiar blobu
	user, err := testServer.store.GetUserByID(context.Background(), claims.UserID)
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), user.StorageUsedBytes)

	// Blob faktycznie zapisany
	blob, err := testServer.storage.Get(node.ID)
	require.NoError(t, err)
	defer blob.Close()
	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	require.Equal(t, content, data)
}

func TestAPI_UploadFile_QuotaExceeded(t *testing.T) {
	// Limit 10 bajtów - upload większego pliku musi odbić się od kontroli
	claims := createTestUserAPI(t, "api_quota_user", 10)

	req := uploadRequest(t, "za-duzy.txt", []byte("więcej niż dziesięć bajtów"), "")
	rr := httptest.NewRecorder()
	req = authRequest(req, claims, nil)
	http.HandlerFunc(testServer.UploadFileHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusInsufficientStorage, rr.Code)

	// Nieudany upload nie zmienia licznika ani nie zostawia rekordu
	user, err := testServer.store.GetUserByID(context.Background(), claims.UserID)
	require.NoError(t, err)
	require.Zero(t, user.StorageUsedBytes)

	var count int
	err = testServer.store.GetPool().QueryRow(context.Background(),
		`SELECT count(*) FROM nodes WHERE owner_id = $1`, claims.UserID).Scan(&count)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestAPI_UpdateNode_RenameAndMove(t *testing.T) {
	claims := createTestUserAPI(t, "api_update_user", 1<<30)

	folder := createTestNodeAPI(t, "Folder_Docelowy", "folder", nil, claims.UserID)
	node := createTestNodeAPI(t, "do-zmiany.txt", "file", nil, claims.UserID)

	newName := "po-zmianie.txt"
	payload := UpdateNodeRequest{Name: &newName, ParentID: &folder.ID}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("PATCH", "/api/v1/nodes/"+node.ID, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	req = authRequest(req, claims, map[string]string{"nodeId": node.ID})
	http.HandlerFunc(testServer.UpdateNodeHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var updated models.Node
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	require.Equal(t, newName, updated.Name)
	require.NotNil(t, updated.ParentID)
	require.Equal(t, folder.ID, *updated.ParentID)
}

func TestAPI_UpdateNode_MoveIntoDescendant(t *testing.T) {
	claims := createTestUserAPI(t, "api_cycle_user", 1<<30)

	outer := createTestNodeAPI(t, "Zewnetrzny", "folder", nil, claims.UserID)
	inner := createTestNodeAPI(t, "Wewnetrzny", "folder", &outer.ID, claims.UserID)

	payload := UpdateNodeRequest{ParentID: &inner.ID}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("PATCH", "/api/v1/nodes/"+outer.ID, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	req = authRequest(req, claims, map[string]string{"nodeId": outer.ID})
	http.HandlerFunc(testServer.UpdateNodeHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	// Hierarchia bez zmian
	unchanged, err := testServer.store.GetNodeByID(context.Background(), outer.ID, claims.UserID)
	require.NoError(t, err)
	require.Nil(t, unchanged.ParentID)
}

func TestAPI_ToggleStar(t *testing.T) {
	claims := createTestUserAPI(t, "api_star_user", 1<<30)
	node := createTestNodeAPI(t, "gwiazdka.txt", "file", nil, claims.UserID)

	req := httptest.NewRequest("POST", "/api/v1/nodes/"+node.ID+"/star", nil)
	rr := httptest.NewRecorder()
	req = authRequest(req, claims, map[string]string{"nodeId": node.ID})
	http.HandlerFunc(testServer.ToggleStarHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp ToggleStarResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Starred)

	// Drugie przełączenie wraca do stanu wyjściowego
	req = httptest.NewRequest("POST", "/api/v1/nodes/"+node.ID+"/star", nil)
	rr = httptest.NewRecorder()
	req = authRequest(req, claims, map[string]string{"nodeId": node.ID})
	http.HandlerFunc(testServer.ToggleStarHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.False(t, resp.Starred)
}

func TestAPI_LockUnlockFolder(t *testing.T) {
	claims := createTestUserAPI(t, "api_lock_user", 1<<30)
	folder := createTestNodeAPI(t, "Sejf", "folder", nil, claims.UserID)

	lockBody, _ := json.Marshal(LockFolderRequest{Secret: "tajne-haslo"})
	req := httptest.NewRequest("POST", "/api/v1/nodes/"+folder.ID+"/lock", bytes.NewReader(lockBody))
	rr := httptest.NewRecorder()
	req = authRequest(req, claims, map[string]string{"nodeId": folder.ID})
	http.HandlerFunc(testServer.LockFolderHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// Ponowna blokada odbija się
	req = httptest.NewRequest("POST", "/api/v1/nodes/"+folder.ID+"/lock", bytes.NewReader(lockBody))
	rr = httptest.NewRecorder()
	req = authRequest(req, claims, map[string]string{"nodeId": folder.ID})
	http.HandlerFunc(testServer.LockFolderHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	// Weryfikacja złym sekretem
	badBody, _ := json.Marshal(LockFolderRequest{Secret: "nie-to-haslo"})
	req = httptest.NewRequest("POST", "/api/v1/nodes/"+folder.ID+"/lock/verify", bytes.NewReader(badBody))
	rr = httptest.NewRecorder()
	req = authRequest(req, claims, map[string]string{"nodeId": folder.ID})
	http.HandlerFunc(testServer.VerifyLockHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	// Odblokowanie dobrym sekretem
	req = httptest.NewRequest("POST", "/api/v1/nodes/"+folder.ID+"/unlock", bytes.NewReader(lockBody))
	rr = httptest.NewRecorder()
	req = authRequest(req, claims, map[string]string{"nodeId": folder.ID})
	http.HandlerFunc(testServer.UnlockFolderHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	unlocked, err := testServer.store.GetNodeByID(context.Background(), folder.ID, claims.UserID)
	require.NoError(t, err)
	require.False(t, unlocked.Locked)
	require.Nil(t, unlocked.LockSecretHash)
}

func TestAPI_LockFile_Rejected(t *testing.T) {
	claims := createTestUserAPI(t, "api_lock_file_user", 1<<30)
	file := createTestNodeAPI(t, "plik.txt", "file", nil, claims.UserID)

	lockBody, _ := json.Marshal(LockFolderRequest{Secret: "tajne-haslo"})
	req := httptest.NewRequest("POST", "/api/v1/nodes/"+file.ID+"/lock", bytes.NewReader(lockBody))
	rr := httptest.NewRecorder()
	req = authRequest(req, claims, map[string]string{"nodeId": file.ID})
	http.HandlerFunc(testServer.LockFolderHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}
