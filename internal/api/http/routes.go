package http

import "github.com/gin-gonic/gin"

// Register mounts every endpoint on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/knowledge", h.Knowledge)

	sessions := r.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("", h.ListSessions)
	sessions.POST("/resume", h.ResumeSession)
	sessions.GET("/:id", h.GetSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.POST("/:id/messages", h.PostMessage)
	sessions.GET("/:id/document", h.GetDocument)
	sessions.GET("/:id/graph", h.GetGraph)
	sessions.POST("/:id/snapshot", h.SaveSession)

	snapshots := r.Group("/snapshots")
	snapshots.GET("", h.ListSnapshots)
	snapshots.POST("/:id/restore", h.RestoreSession)

	graph := r.Group("/graph")
	graph.POST("/validate", h.ValidateGraph)
	graph.POST("/resolve", h.ResolveGraph)
	graph.POST("/render", h.RenderGraph)
}
