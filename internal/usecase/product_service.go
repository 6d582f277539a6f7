package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/infrastructure/cache"
	"github.com/labelpadega/backend/internal/infrastructure/openfoodfacts"
	"github.com/labelpadega/backend/internal/infrastructure/usda"
)

// Cache namespaces of the product sources
const (
	offNamespace  = "off"
	usdaNamespace = "usda"

	defaultProductTTL   = 24 * time.Hour
	barcodeSearchSize   = 1
	keywordFallbackSize = 3
)

var barcodeRegex = regexp.MustCompile(`^\d{8,14}$`)

// ProductServiceConfig holds configuration for the product service
type ProductServiceConfig struct {
	CacheTTL time.Duration
}

// ProductService looks products up by barcode or name and screens them against
// the regulation database
type ProductService struct {
	off          domain.OpenFoodFactsClient
	usda         domain.USDAClient
	cache        domain.CacheRepository
	regulation   domain.RegulationChecker
	analysis     *AnalysisService
	matcher      *ProductMatcher
	preprocessor *QueryPreprocessor
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(
	off domain.OpenFoodFactsClient,
	usdaClient domain.USDAClient,
	cacheRepo domain.CacheRepository,
	regulation domain.RegulationChecker,
	analysis *AnalysisService,
	matcher *ProductMatcher,
	config ProductServiceConfig,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if matcher == nil {
		matcher = NewProductMatcher(MatchConfig{}, logger)
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultProductTTL
	}
	return &ProductService{
		off:          off,
		usda:         usdaClient,
		cache:        cacheRepo,
		regulation:   regulation,
		analysis:     analysis,
		matcher:      matcher,
		preprocessor: NewQueryPreprocessor(logger),
		cacheTTL:     ttl,
		logger:       logger,
	}
}

// LookupBarcode finds a product by barcode in Open Food Facts, falling back to USDA,
// and attaches its regulation report. Raw upstream responses are cached per source.
func (s *ProductService) LookupBarcode(ctx context.Context, barcode string) (*domain.ProductLookup, error) {
	barcode = strings.TrimSpace(barcode)
	if !barcodeRegex.MatchString(barcode) {
		return nil, fmt.Errorf("%w: barcode must be 8 to 14 digits", domain.ErrInvalidRequest)
	}

	product, offErr := s.fromOpenFoodFacts(ctx, barcode)
	if offErr != nil {
		s.logger.Debug("open food facts lookup failed, trying usda", zap.String("barcode", barcode), zap.Error(offErr))

		var usdaErr error
		product, usdaErr = s.fromUSDA(ctx, barcode)
		if usdaErr != nil {
			s.logger.Info("product lookup failed",
				zap.String("barcode", barcode),
				zap.NamedError("off_error", offErr),
				zap.NamedError("usda_error", usdaErr),
			)
			if errors.Is(offErr, domain.ErrProductNotFound) && errors.Is(usdaErr, domain.ErrProductNotFound) {
				return nil, domain.ErrProductNotFound
			}
			if !errors.Is(usdaErr, domain.ErrProductNotFound) {
				return nil, usdaErr
			}
			return nil, offErr
		}
	}

	return &domain.ProductLookup{
		Product:    product,
		Regulation: s.regulation.Report(product),
	}, nil
}

func (s *ProductService) fromOpenFoodFacts(ctx context.Context, barcode string) (domain.ProductRecord, error) {
	key := cache.DeriveKey(offNamespace, barcode)

	var resp domain.OFFProductResponse
	if !s.load(ctx, key, &resp) || resp.Status != 1 {
		fetched, err := s.off.GetProduct(ctx, barcode)
		if err != nil {
			return domain.ProductRecord{}, err
		}
		resp = *fetched
		s.store(ctx, key, resp)
	}
	return openfoodfacts.MapToProductRecord(barcode, resp.Product), nil
}

func (s *ProductService) fromUSDA(ctx context.Context, barcode string) (domain.ProductRecord, error) {
	key := cache.DeriveKey(usdaNamespace, barcode)

	var lookup domain.USDALookup
	if !s.load(ctx, key, &lookup) || len(lookup.Search.Foods) == 0 {
		search, err := s.usda.SearchFoods(ctx, barcode, barcodeSearchSize)
		if err != nil {
			return domain.ProductRecord{}, err
		}
		detail, err := s.usda.GetFoodDetails(ctx, search.Foods[0].FdcID)
		if err != nil {
			return domain.ProductRecord{}, err
		}
		lookup = domain.USDALookup{Search: *search, Detail: *detail}
		s.store(ctx, key, lookup)
	}
	return usda.MapToProductRecord(barcode, lookup)
}

// SearchProducts searches Open Food Facts by name and ranks the hits with the
// product matcher. When the cleaned query finds nothing the top food keywords are tried.
func (s *ProductService) SearchProducts(ctx context.Context, request *domain.SearchRequest) ([]domain.ProductMatch, error) {
	if request == nil || strings.TrimSpace(request.ProductName) == "" {
		return nil, domain.ErrInvalidRequest
	}

	query := s.preprocessor.PreprocessQuery(request.ProductName, request.Brand)
	if query == "" {
		query = strings.TrimSpace(request.ProductName)
	}
	products, err := s.searchByName(ctx, query)
	if err != nil {
		return nil, err
	}

	if len(products) == 0 {
		keywords := s.preprocessor.ExtractFoodKeywords(request.ProductName)
		if len(keywords) > keywordFallbackSize {
			keywords = keywords[:keywordFallbackSize]
		}
		if fallback := strings.Join(keywords, " "); fallback != "" && fallback != strings.ToLower(query) {
			if products, err = s.searchByName(ctx, fallback); err != nil {
				return nil, err
			}
		}
	}
	if len(products) == 0 {
		return []domain.ProductMatch{}, nil
	}

	ranked, err := s.matcher.Rank(ctx, request, CandidatesFromOFF(products))
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]domain.OFFProduct, len(products))
	for _, p := range products {
		byCode[p.Code] = p
	}

	matches := make([]domain.ProductMatch, 0, len(ranked))
	for _, r := range ranked {
		p, ok := byCode[r.ID]
		if !ok {
			continue
		}
		matches = append(matches, domain.ProductMatch{
			Product:       openfoodfacts.MapToProductRecord(p.Code, p),
			MatchScore:    r.MatchScore,
			MatchedTokens: r.MatchedTokens,
		})
	}
	return matches, nil
}

func (s *ProductService) searchByName(ctx context.Context, query string) ([]domain.OFFProduct, error) {
	key := cache.DeriveKey(offNamespace, "search_"+query)

	var products []domain.OFFProduct
	if s.load(ctx, key, &products) {
		return products, nil
	}

	resp, err := s.off.SearchProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(resp.Products) > 0 {
		s.store(ctx, key, resp.Products)
	}
	return resp.Products, nil
}

// ReportRequest asks for the combined report of one product
type ReportRequest struct {
	Product   domain.ProductRecord `json:"product"`
	Allergies []string             `json:"allergies,omitempty"`
}

// Report runs the health, environmental and allergen analyses concurrently and
// attaches the regulation report. Each analysis fails soft on its own.
func (s *ProductService) Report(ctx context.Context, req ReportRequest) (*domain.ProductReport, error) {
	if strings.TrimSpace(req.Product.ProductName) == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidRequest)
	}

	report := &domain.ProductReport{Product: req.Product}

	g, gctx := errgroup.WithContext(ctx)
	run := func(kind string, dst **domain.AnalysisResult) {
		g.Go(func() error {
			res, err := s.analysis.Analyze(gctx, domain.AnalysisRequest{
				Kind:      kind,
				Product:   req.Product,
				Allergies: req.Allergies,
			})
			if err != nil {
				return err
			}
			*dst = res
			return nil
		})
	}
	run(domain.KindHealth, &report.Health)
	run(domain.KindEnvironmental, &report.Environmental)
	run(domain.KindAllergen, &report.Allergen)

	report.Regulation = s.regulation.Report(req.Product)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// CheckRegulations screens a product record against the regulation database
func (s *ProductService) CheckRegulations(product domain.ProductRecord) domain.RegulationReport {
	return s.regulation.Report(product)
}

// CheckCompliance reports whether an ingredient list is compliant in a region
func (s *ProductService) CheckCompliance(ingredients, region string) domain.ComplianceResult {
	return s.regulation.CheckCompliance(ingredients, region)
}

func (s *ProductService) load(ctx context.Context, key string, out interface{}) bool {
	raw, err := s.cache.Get(ctx, key, s.cacheTTL)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("discarding unreadable product cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *ProductService) store(ctx context.Context, key string, v interface{}) {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Warn("failed to cache product response", zap.String("key", key), zap.Error(err))
	}
}
