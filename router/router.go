package router

import (
	"net/http"

	"github.com/24rabbit/material-service/handler"
	"github.com/24rabbit/material-service/middleware"
	ginmetrics "github.com/24rabbit/material-service/pkg/metrics/gin"
	"github.com/gin-gonic/gin"
)

func Setup(materialHandler *handler.MaterialHandler, authn *middleware.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), ginmetrics.PrometheusMiddleware("material-service"))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", authn.SessionAuth())
	{
		api.POST("/materials/uploads", materialHandler.StageUpload)
		api.PATCH("/materials/uploads", materialHandler.ConfirmUpload)
		api.GET("/materials", materialHandler.ListMaterials)
		api.GET("/materials/:id", materialHandler.GetMaterial)
		api.DELETE("/materials/:id", materialHandler.DeleteMaterial)
		api.GET("/materials/:id/download", materialHandler.DownloadURL)
	}

	return r
}
