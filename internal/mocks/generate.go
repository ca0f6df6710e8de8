package mocks

//go:generate mockery --name EventSource --srcpkg github.com/parcelmap/listing-search/internal/enrichment --output ./enrichment --outpkg enrichmentmocks --with-expecter
//go:generate mockery --name SchoolGrader --srcpkg github.com/parcelmap/listing-search/internal/enrichment --output ./enrichment --outpkg enrichmentmocks --with-expecter
//go:generate mockery --name AgentDirectory --srcpkg github.com/parcelmap/listing-search/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
