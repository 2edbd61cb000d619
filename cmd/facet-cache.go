package main

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uvalib/virgo4-api/v4api"

	"github.com/uvalib/solr-search-ws/internal/search"
)

type facetCache struct {
	svc             *serviceContext
	refreshInterval int
	mu              sync.RWMutex
	currentFacets   []v4api.Facet
	facetMap        map[string]*v4api.Facet
}

func newFacetCache(svc *serviceContext, interval int) *facetCache {
	f := facetCache{
		svc:             svc,
		refreshInterval: interval,
	}

	go f.monitorFacets()

	return &f
}

// preSearchContext builds an internal search matching everything, faceted on the pre-search facets
func (f *facetCache) preSearchContext() (*searchContext, error) {
	c := clientContext{}
	c.init(f.svc, nil)

	s := searchContext{}
	s.init(f.svc, &c)

	var facets search.FacetFiltersToIncludeInResult
	for _, facet := range f.svc.config.Facets {
		if facet.PreSearch == true {
			facets = append(facets, facetRequestField(facet))
		}
	}

	opts, err := search.NewQueryOptions(nil, f.svc.config.DefaultContext, facets, 1, 0, search.SortBy{})
	if err != nil {
		return nil, err
	}

	s.criteria = search.NewLeaf(search.OperationAnything, "", "")
	s.opts = opts

	return &s, nil
}

func (f *facetCache) monitorFacets() {
	for {
		f.refreshFacets()
		log.Printf("[CACHE] refresh scheduled in %d seconds", f.refreshInterval)
		time.Sleep(time.Duration(f.refreshInterval) * time.Second)
	}
}

func (f *facetCache) refreshFacets() {
	log.Printf("[CACHE] refreshing solr facets...")

	s, err := f.preSearchContext()
	if err != nil {
		log.Errorf("[CACHE] query creation error: %s", err.Error())
		return
	}

	if resp := s.performQuery(); resp.err != nil {
		s.err("[CACHE] query error: %s", resp.err.Error())
		return
	}

	f.store(s.buildFacetList())
}

func (f *facetCache) store(facets []v4api.Facet) {
	facetMap := make(map[string]*v4api.Facet)
	for i := range facets {
		facet := &facets[i]
		facetMap[facet.ID] = facet
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.currentFacets = facets
	f.facetMap = facetMap
}

func (f *facetCache) getPreSearchFilters() ([]v4api.Facet, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.currentFacets == nil {
		return nil, errors.New("facets have not been cached yet")
	}

	filters := []v4api.Facet{}

	for _, facet := range f.svc.config.Facets {
		filter := f.facetMap[facet.XID]

		// assume any missing filters are due to them not existing in solr
		if filter == nil {
			continue
		}

		filters = append(filters, *filter)
	}

	return filters, nil
}
