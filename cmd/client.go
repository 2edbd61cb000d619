package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/uvalib/virgo4-jwt/v4jwt"
)

type clientOpts struct {
	debug   bool // controls whether debug info is added to search results
	verbose bool // controls whether verbose Solr requests/responses are logged
}

type clientContext struct {
	reqID  string          // internally generated
	start  time.Time       // internally set
	opts   clientOpts      // options set by client
	claims *v4jwt.V4Claims // information about this user
	ginCtx *gin.Context    // gin context
	logger *log.Entry      // request scoped logger
}

func boolOptionWithFallback(opt string, fallback bool) bool {
	var err error
	var val bool

	if val, err = strconv.ParseBool(opt); err != nil {
		val = fallback
	}

	return val
}

func (c *clientContext) init(p *serviceContext, ctx *gin.Context) {
	c.ginCtx = ctx

	c.start = time.Now()
	c.reqID = strings.Split(uuid.New().String(), "-")[0]
	c.logger = log.WithField("req", c.reqID)

	// internal requests (e.g. facet cache refreshes) have no gin context
	if ctx == nil {
		return
	}

	// get claims, if any
	if val, ok := ctx.Get("claims"); ok == true {
		c.claims = val.(*v4jwt.V4Claims)
	}

	c.opts.debug = boolOptionWithFallback(ctx.Query("debug"), false)
	c.opts.verbose = boolOptionWithFallback(ctx.Query("verbose"), false)

	ctx.Header("X-Request-Id", c.reqID)
}

func (c *clientContext) logRequest() {
	c.log("------------------------------[ NEW REQUEST ]------------------------------")

	query := ""
	if c.ginCtx.Request.URL.RawQuery != "" {
		query = fmt.Sprintf("?%s", c.ginCtx.Request.URL.RawQuery)
	}

	claimsStr := ""
	if c.claims != nil {
		claimsStr = fmt.Sprintf("  [%s; %s; %s; %v]", c.claims.UserID, c.claims.Role, c.claims.AuthMethod, c.claims.IsUVA)
	}

	c.log("[REQUEST] %s %s%s%s", c.ginCtx.Request.Method, c.ginCtx.Request.URL.Path, query, claimsStr)
}

func (c *clientContext) logResponse(resp searchResponse) {
	msg := fmt.Sprintf("[RESPONSE] status: %d", resp.status)

	if resp.err != nil {
		msg = msg + fmt.Sprintf(", error: %s", resp.err.Error())
	}

	c.log("%s", msg)
}

func (c *clientContext) log(format string, args ...interface{}) {
	c.logger.Infof(format, args...)
}

func (c *clientContext) err(format string, args ...interface{}) {
	c.logger.Errorf(format, args...)
}
