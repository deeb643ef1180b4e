package parsing

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// multipartRequest builds a multipart POST request with the given fields
// and, if image is not nil, an image file
func multipartRequest(t *testing.T, fields map[string]string, image []byte) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if image != nil {
		fw, err := mw.CreateFormFile(ImageFieldName, "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestParseError(t *testing.T) {
	err := ParseError{
		What:            "title",
		Why:             "missing",
		FixInstructions: "add a title",
		InternalError:   io.ErrUnexpectedEOF,
	}

	assert.Equal(t, "invalid title: missing, add a title", err.UserError())
	assert.Contains(t, err.Error(), io.ErrUnexpectedEOF.Error())

	parseErr, ok := AsParseError(err)
	require.True(t, ok)
	assert.Equal(t, "title", parseErr.What)

	_, ok = AsParseError(io.EOF)
	assert.False(t, ok)
}

func TestParseContentFormJSON(t *testing.T) {
	form, err := ParseContentForm(jsonRequest(`{"title":"Hello","content":"Body",
		"is_published":true,"display_order":3,"categories":{"id":"ignored"}}`))
	require.NoError(t, err)

	require.NotNil(t, form.Title)
	assert.Equal(t, "Hello", *form.Title)
	assert.Equal(t, "Body", *form.Body)
	assert.True(t, *form.IsPublished)
	assert.Equal(t, 3, *form.DisplayOrder)
	assert.Nil(t, form.Featured)
	assert.Nil(t, form.Image)

	form, err = ParseContentForm(jsonRequest(""))
	require.NoError(t, err, "empty body is an empty patch")
	assert.Empty(t, form.Fields())

	_, err = ParseContentForm(jsonRequest("{"))
	_, ok := AsParseError(err)
	assert.True(t, ok)
}

func TestParseContentFormMultipart(t *testing.T) {
	r := multipartRequest(t, map[string]string{
		"title":         "Hello",
		"category_id":   "c1",
		"featured":      "on",
		"is_published":  "false",
		"display_order": "2",
	}, []byte("image bytes"))

	form, err := ParseContentForm(r)
	require.NoError(t, err)
	defer form.Image.Close()

	assert.Equal(t, "Hello", *form.Title)
	assert.Equal(t, "c1", *form.CategoryID)
	assert.True(t, *form.Featured)
	assert.False(t, *form.IsPublished)
	assert.Equal(t, 2, *form.DisplayOrder)
	assert.Nil(t, form.Slug)

	require.NotNil(t, form.Image)
	assert.Equal(t, "photo.png", form.Image.Filename)
	assert.Equal(t, int64(len("image bytes")), form.Image.Size)

	content, err := io.ReadAll(form.Image.File)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(content))
}

func TestParseContentFormMultipartBadFields(t *testing.T) {
	_, err := ParseContentForm(multipartRequest(t, map[string]string{"featured": "maybe"}, nil))
	parseErr, ok := AsParseError(err)
	require.True(t, ok)
	assert.Equal(t, "featured", parseErr.What)

	_, err = ParseContentForm(multipartRequest(t, map[string]string{"display_order": "first"}, nil))
	parseErr, ok = AsParseError(err)
	require.True(t, ok)
	assert.Equal(t, "display_order", parseErr.What)
}

func TestParseCategoryForm(t *testing.T) {
	form, err := ParseCategoryForm(multipartRequest(t, map[string]string{
		"name":        "Events",
		"description": "What is on",
	}, nil))
	require.NoError(t, err)
	assert.Equal(t, "Events", *form.Name)
	assert.Equal(t, "What is on", *form.Description)
	assert.Nil(t, form.Image)

	form, err = ParseCategoryForm(jsonRequest(`{"name":"News","display_order":1}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "News", "display_order": 1}, form.Fields())
}

func TestParseSliderImageForm(t *testing.T) {
	form, err := ParseSliderImageForm(multipartRequest(t, map[string]string{"display_order": "4"}, []byte("x")))
	require.NoError(t, err)
	defer form.Image.Close()
	assert.Equal(t, 4, form.DisplayOrder)

	form, err = ParseSliderImageForm(multipartRequest(t, map[string]string{"display_order": "top"}, []byte("x")))
	require.NoError(t, err)
	defer form.Image.Close()
	assert.Equal(t, 0, form.DisplayOrder, "invalid order falls back to 0")

	_, err = ParseSliderImageForm(multipartRequest(t, map[string]string{"display_order": "1"}, nil))
	parseErr, ok := AsParseError(err)
	require.True(t, ok)
	assert.Equal(t, "no image provided", parseErr.Why)

	_, err = ParseSliderImageForm(jsonRequest(`{}`))
	_, ok = AsParseError(err)
	assert.True(t, ok)
}

func TestParseReorderRequest(t *testing.T) {
	reorder, err := ParseReorderRequest(jsonRequest(`{"images":[{"id":"a","display_order":1},{"id":"b","display_order":0}]}`))
	require.NoError(t, err)
	require.Len(t, reorder.Images, 2)
	assert.Equal(t, "b", reorder.Images[1].ID)
	assert.Equal(t, 0, reorder.Images[1].DisplayOrder)

	for _, body := range []string{`{}`, `{"images":{"id":"a"}}`, `{"images":"a"}`, `{"images":[{"display_order":1}]}`} {
		_, err := ParseReorderRequest(jsonRequest(body))
		_, ok := AsParseError(err)
		assert.Truef(t, ok, "body %s should be rejected", body)
	}
}

func TestParseLoginRequest(t *testing.T) {
	login, err := ParseLoginRequest(jsonRequest(`{"email":" a@b.c ","password":"pw"}`))
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", login.Email)

	_, err = ParseLoginRequest(jsonRequest(`{"email":"a@b.c"}`))
	_, ok := AsParseError(err)
	assert.True(t, ok)
}

func TestDecodeJSONRejectsOtherTypes(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var dest map[string]interface{}
	_, ok := AsParseError(DecodeJSON(r, &dest))
	assert.True(t, ok)
}
