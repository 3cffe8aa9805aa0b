package http

import "github.com/gin-gonic/gin"

// RegisterUI registers the browser routes and the page templates
func (h *Handler) RegisterUI(r *gin.Engine) {
	r.SetHTMLTemplate(templates)

	r.GET("/", h.Index)
	r.GET("/events", h.StreamEvents)
	r.POST("/form", h.SubmitForm)
	r.POST("/form/cancel", h.CancelEdit)
	r.POST("/applications/:id/edit", h.BeginEdit)
	r.POST("/applications/:id/delete", h.DeleteApplication)
	r.POST("/criteria", h.UpdateCriteria)
}

// RegisterAPI registers the JSON API. writes guards the mutating routes.
func (h *Handler) RegisterAPI(rg *gin.RouterGroup, writes ...gin.HandlerFunc) {
	rg.GET("/applications", h.ListApplications)
	rg.GET("/applications/stream", h.StreamApplications)

	w := rg.Group("/applications", writes...)
	w.POST("", h.CreateApplication)
	w.PUT("/:id", h.UpdateApplication)
	w.DELETE("/:id", h.DeleteApplicationAPI)
}
