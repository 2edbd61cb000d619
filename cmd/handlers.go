package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/uvalib/virgo4-jwt/v4jwt"
)

func (p *serviceContext) newSearchContext(c *gin.Context) (*clientContext, *searchContext) {
	cl := clientContext{}
	cl.init(p, c)

	s := searchContext{}
	s.init(p, &cl)

	return &cl, &s
}

func (p *serviceContext) searchHandler(c *gin.Context) {
	cl, s := p.newSearchContext(c)

	cl.logRequest()
	resp := s.handleSearchRequest(c, false)
	cl.logResponse(resp)

	c.JSON(resp.status, resp.data)
}

func (p *serviceContext) fullTextSearchHandler(c *gin.Context) {
	cl, s := p.newSearchContext(c)

	cl.logRequest()
	resp := s.handleSearchRequest(c, true)
	cl.logResponse(resp)

	c.JSON(resp.status, resp.data)
}

func (p *serviceContext) facetsHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(p, c)

	cl.logRequest()

	facets, err := p.facetCache.getPreSearchFilters()
	if err != nil {
		resp := searchResponse{status: http.StatusServiceUnavailable, err: err}
		cl.logResponse(resp)
		c.String(resp.status, err.Error())
		return
	}

	cl.logResponse(searchResponse{status: http.StatusOK})

	c.JSON(http.StatusOK, facets)
}

func (p *serviceContext) addDocumentsHandler(c *gin.Context) {
	cl, s := p.newSearchContext(c)

	cl.logRequest()
	resp := s.handleAddDocumentsRequest(c)
	cl.logResponse(resp)

	if resp.err != nil {
		c.String(resp.status, resp.err.Error())
		return
	}

	c.JSON(resp.status, resp.data)
}

func (p *serviceContext) clearDocumentsHandler(c *gin.Context) {
	cl, s := p.newSearchContext(c)

	cl.logRequest()
	resp := s.handleClearRequest()
	cl.logResponse(resp)

	if resp.err != nil {
		c.String(resp.status, resp.err.Error())
		return
	}

	c.Status(resp.status)
}

func (p *serviceContext) ignoreHandler(c *gin.Context) {
}

func (p *serviceContext) versionHandler(c *gin.Context) {
	cl := clientContext{}
	cl.init(p, c)

	c.JSON(http.StatusOK, p.version)
}

func (p *serviceContext) healthCheckHandler(c *gin.Context) {
	_, s := p.newSearchContext(c)

	ping := s.handlePingRequest()

	// build response

	internalServiceError := false

	type hcResp struct {
		Healthy bool   `json:"healthy"`
		Message string `json:"message,omitempty"`
	}

	hcSolr := hcResp{Healthy: true}
	if ping.err != nil {
		internalServiceError = true
		hcSolr = hcResp{Healthy: false, Message: ping.err.Error()}
	}

	hcMap := make(map[string]hcResp)
	hcMap["solr"] = hcSolr

	hcStatus := http.StatusOK
	if internalServiceError == true {
		hcStatus = http.StatusInternalServerError
	}

	c.JSON(hcStatus, hcMap)
}

func getBearerToken(authorization string) (string, error) {
	components := strings.Split(strings.Join(strings.Fields(authorization), " "), " ")

	// must have two components, the first of which is "Bearer", and the second a non-empty token
	if len(components) != 2 || components[0] != "Bearer" || components[1] == "" {
		return "", fmt.Errorf("invalid Authorization header: [%s]", authorization)
	}

	token := components[1]

	if token == "undefined" {
		return "", errors.New("bearer token is undefined")
	}

	return token, nil
}

func (p *serviceContext) authenticateHandler(c *gin.Context) {
	token, err := getBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		log.Printf("authentication failed: [%s]", err.Error())
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := v4jwt.Validate(token, p.config.Service.JWTKey)

	if err != nil {
		log.Printf("JWT signature for %s is invalid: %s", token, err.Error())
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.Set("token", token)
	c.Set("claims", claims)
}

func (p *serviceContext) adminHandler(c *gin.Context) {
	val, ok := c.Get("claims")

	if ok == false {
		log.Printf("no claims")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims := val.(*v4jwt.V4Claims)

	if claims.Role.String() != "admin" {
		log.Printf("insufficient permissions")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
}
