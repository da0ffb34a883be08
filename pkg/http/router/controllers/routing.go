package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/opennavx/navsim/pkg/geo"
	helper "github.com/opennavx/navsim/pkg/http/router/routerhelper"
)

type routingAPI struct {
	routingService RoutingService
	log            *zap.Logger
}

func New(routingService RoutingService, log *zap.Logger) *routingAPI {
	return &routingAPI{
		routingService: routingService,
		log:            log,
	}
}

func (api *routingAPI) Routes(group *helper.RouteGroup) {
	group.POST("/routes/compute", api.computeRoute)
}

func (api *routingAPI) computeRoute(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		request computeRoutesRequest
		err     error
	)

	err = json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		serverErrorResponse(api.log, w, r, err)
		return
	}

	validate := validator.New()
	if err := validate.Struct(request); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		badRequestResponse(w, r, fmt.Errorf("validation error: %v", vvString))
		return
	}

	obstacles := make([]geo.Coordinate, 0, len(request.BlockedEdges))
	for _, pair := range request.BlockedEdges {
		obstacles = append(obstacles, geo.NewCoordinate(pair[0], pair[1]))
	}

	route, pathPolyline, result, err := api.routingService.ComputeRoute(
		request.OriginLat, request.OriginLon,
		request.DestinationLat, request.DestinationLon,
		request.Scenario, request.Algorithm, obstacles, request.IncludeExploration)
	if err != nil {
		writeServiceError(api.log, w, r, err)
		return
	}

	headers := make(http.Header)

	if err := writeJSON(w, http.StatusOK,
		envelope{"data": NewRouteResponse(route, pathPolyline, result)}, headers); err != nil {
		serverErrorResponse(api.log, w, r, err)
		return
	}
}
