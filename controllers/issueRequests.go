package controllers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"civicsync-api/apperrors"
	"civicsync-api/services"

	"github.com/gin-gonic/gin"
)

// coordinates accepts either [lng, lat] or a GeoJSON point.
type coordinates []float64

func (p *coordinates) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err == nil {
		*p = pair
		return nil
	}
	var point struct {
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(b, &point); err != nil {
		return err
	}
	*p = point.Coordinates
	return nil
}

type locationRequest struct {
	Address     string      `json:"address"`
	City        string      `json:"city"`
	State       string      `json:"state"`
	ZipCode     string      `json:"zipCode"`
	Coordinates coordinates `json:"coordinates"`
}

func (l locationRequest) toInput() services.LocationInput {
	return services.LocationInput{
		Address:     l.Address,
		City:        l.City,
		State:       l.State,
		ZipCode:     l.ZipCode,
		Coordinates: []float64(l.Coordinates),
	}
}

type createIssueRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Priority    string          `json:"priority"`
	Location    locationRequest `json:"location"`
}

func (r createIssueRequest) toInput() services.CreateIssueInput {
	return services.CreateIssueInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
		Location:    r.Location.toInput(),
	}
}

// updateIssueRequest has no upvote fields so counts can never be patched.
type updateIssueRequest struct {
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	Category        *string          `json:"category"`
	Priority        *string          `json:"priority"`
	Location        *locationRequest `json:"location"`
	Status          *string          `json:"status"`
	StatusNote      *string          `json:"statusNote"`
	RejectionReason *string          `json:"rejectionReason"`
	AssignedTo      *string          `json:"assignedTo"`
}

func (r updateIssueRequest) toInput() services.UpdateIssueInput {
	in := services.UpdateIssueInput{
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Priority:        r.Priority,
		Status:          r.Status,
		StatusNote:      r.StatusNote,
		RejectionReason: r.RejectionReason,
		AssignedTo:      r.AssignedTo,
	}
	if r.Location != nil {
		loc := r.Location.toInput()
		in.Location = &loc
	}
	return in
}

type commentRequest struct {
	Text string `json:"text"`
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// bindCreateForm reads a multipart create request. Location fields use the
// bracketed keys browsers send for nested objects; a JSON encoded
// "location" field is accepted too.
func bindCreateForm(c *gin.Context) (createIssueRequest, []services.Upload, error) {
	req := createIssueRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Priority:    c.PostForm("priority"),
	}

	if raw := c.PostForm("location"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Location); err != nil {
			return req, nil, apperrors.Invalid("location", "Location must be a valid object")
		}
	} else {
		req.Location = locationRequest{
			Address: c.PostForm("location[address]"),
			City:    c.PostForm("location[city]"),
			State:   c.PostForm("location[state]"),
			ZipCode: c.PostForm("location[zipCode]"),
		}
		coords, err := formCoordinates(c)
		if err != nil {
			return req, nil, err
		}
		req.Location.Coordinates = coords
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, nil, apperrors.Invalid("images", "Malformed multipart form")
	}
	uploads := make([]services.Upload, 0, len(form.File["images"]))
	for _, fh := range form.File["images"] {
		uploads = append(uploads, toUpload(fh))
	}
	return req, uploads, nil
}

func toUpload(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

var coordinateKeys = [][2]string{
	{"location[coordinates][coordinates][0]", "location[coordinates][coordinates][1]"},
	{"location[coordinates][0]", "location[coordinates][1]"},
	{"longitude", "latitude"},
}

func formCoordinates(c *gin.Context) (coordinates, error) {
	for _, keys := range coordinateKeys {
		rawLng, rawLat := c.PostForm(keys[0]), c.PostForm(keys[1])
		if rawLng == "" && rawLat == "" {
			continue
		}
		lng, errLng := strconv.ParseFloat(strings.TrimSpace(rawLng), 64)
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
		if errLng != nil || errLat != nil {
			return nil, apperrors.Invalid("location.coordinates", "Coordinates must be numbers")
		}
		return coordinates{lng, lat}, nil
	}
	return nil, nil
}
