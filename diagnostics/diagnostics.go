// Package diagnostics 通过 HTTP 暴露容器中的组件定义和方法分派信息。
package diagnostics

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gocrud/inject/di"
)

// DefinitionView 是组件定义的摘要。
type DefinitionView struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Scope     string `json:"scope"`
	Overrides int    `json:"overrides"`
}

// MethodView 是分派表中的一项。
type MethodView struct {
	Signature string `json:"signature"`
	Kind      string `json:"kind"`
	Override  string `json:"override,omitempty"`
}

// DefinitionDetail 是单个组件的定义及其分派表。
type DefinitionDetail struct {
	DefinitionView
	Methods []MethodView `json:"methods"`
}

// Controller 挂载诊断路由。
type Controller struct {
	container di.Container
}

// NewController 创建诊断控制器。
func NewController(c di.Container) *Controller {
	return &Controller{container: c}
}

// MountRoutes 注册路由：
//
//	GET /definitions        所有组件定义
//	GET /definitions/:name  单个组件的分派表
//	GET /stats              容器统计
func (ctl *Controller) MountRoutes(router gin.IRouter) {
	router.GET("/definitions", ctl.listDefinitions)
	router.GET("/definitions/:name", ctl.getDefinition)
	router.GET("/stats", ctl.stats)
}

// NewEngine 创建只包含诊断路由的 gin 引擎。
func NewEngine(c di.Container) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	NewController(c).MountRoutes(engine)
	return engine
}

func (ctl *Controller) listDefinitions(ctx *gin.Context) {
	defs := ctl.container.Definitions()
	views := make([]DefinitionView, 0, len(defs))
	for _, def := range defs {
		views = append(views, viewOf(def))
	}
	ctx.JSON(http.StatusOK, views)
}

func (ctl *Controller) getDefinition(ctx *gin.Context) {
	name := ctx.Param("name")
	def, ok := ctl.container.Definition(name)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": (&di.NoSuchComponentError{Name: name}).Error()})
		return
	}

	detail := DefinitionDetail{DefinitionView: viewOf(def), Methods: []MethodView{}}
	if def.Value == nil {
		table, err := di.BuildDispatchTable(def.Type, def.Overrides)
		if err != nil {
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		for _, e := range table.Entries() {
			mv := MethodView{Signature: e.Method.Signature(), Kind: e.Kind.String()}
			if e.Override != nil {
				mv.Override = e.Override.String()
			}
			detail.Methods = append(detail.Methods, mv)
		}
	}
	ctx.JSON(http.StatusOK, detail)
}

func (ctl *Controller) stats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, ctl.container.Stats())
}

func viewOf(def *di.Definition) DefinitionView {
	v := DefinitionView{
		Name:      def.Name,
		Scope:     def.Scope.String(),
		Overrides: def.Overrides.Len(),
	}
	if def.Type != nil {
		v.Type = def.Type.String()
	}
	return v
}
