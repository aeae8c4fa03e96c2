package handlers

import (
	"github.com/gin-gonic/gin"

	"medicare-server/internal/apperror"
	"medicare-server/internal/middleware"
	"medicare-server/internal/pagination"
	"medicare-server/internal/services"
	"medicare-server/internal/storage"
	"medicare-server/internal/utils"
)

// currentActor returns the authenticated actor or records a 401.
func currentActor(c *gin.Context) (services.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		utils.Abort(c, apperror.Unauthorized("You are not authorized!"))
		return nil, false
	}
	return a, true
}

func pageOptions(c *gin.Context) pagination.Options {
	return pagination.FromQuery(c.Request.URL.Query())
}

// uploadFile stores the optional multipart file under field and returns its URL.
// Without a store, uploads are skipped.
func uploadFile(c *gin.Context, store storage.Store, field string) (string, error) {
	if store == nil {
		return "", nil
	}
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}
	url, err := storage.SaveMultipart(c.Request.Context(), store, fh)
	if err != nil {
		return "", apperror.Wrap(400, "Invalid upload: "+err.Error(), err)
	}
	return url, nil
}
