package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/picplace/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	fixType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationFix",
		Fields: graphql.Fields{
			"lat":       &graphql.Field{Type: graphql.Float},
			"lon":       &graphql.Field{Type: graphql.Float},
			"timestamp": &graphql.Field{Type: graphql.DateTime},
			"deviceId":  &graphql.Field{Type: graphql.String},
			"accuracy":  &graphql.Field{Type: graphql.Float},
		},
	})

	statusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Status",
		Fields: graphql.Fields{
			"tracking":          &graphql.Field{Type: graphql.String},
			"proximity":         &graphql.Field{Type: graphql.String},
			"permissionGranted": &graphql.Field{Type: graphql.Boolean},
			"lastFix":           &graphql.Field{Type: fixType},
		},
	})

	notificationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Notification",
		Fields: graphql.Fields{
			"title":     &graphql.Field{Type: graphql.String},
			"body":      &graphql.Field{Type: graphql.String},
			"dedupeKey": &graphql.Field{Type: graphql.Int},
			"createdAt": &graphql.Field{Type: graphql.DateTime},
		},
	})

	status := func() map[string]interface{} {
		st := deps.Control.Status()
		m := map[string]interface{}{
			"tracking":          st.Tracking.String(),
			"proximity":         st.Proximity.String(),
			"permissionGranted": st.PermissionGranted,
		}
		if st.LastFix != nil {
			m["lastFix"] = fixMap(st.LastFix)
		}
		return m
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"status": &graphql.Field{
				Type:        statusType,
				Description: "State of the tracking and proximity processes",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return status(), nil
				},
			},
			"lastFix": &graphql.Field{
				Type:        fixType,
				Description: "Most recent accepted location fix",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if fix := deps.Control.Tracking().LastFix(); fix != nil {
						return fixMap(fix), nil
					}
					if deps.Locations == nil {
						return nil, nil
					}
					fix, err := deps.Locations.Last(p.Context)
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return fixMap(fix), nil
				},
			},
			"notification": &graphql.Field{
				Type:        notificationType,
				Description: "Notification currently shown under a dedupe key",
				Args: graphql.FieldConfigArgument{
					"key": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Notifications == nil {
						return nil, nil
					}
					n, err := deps.Notifications.Current(p.Context, p.Args["key"].(int))
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"title":     n.Title,
						"body":      n.Body,
						"dedupeKey": n.DedupeKey,
						"createdAt": n.CreatedAt,
					}, nil
				},
			},
		},
	})

	toggleArgs := graphql.FieldConfigArgument{
		"enabled": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Boolean)},
	}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"setTracking": &graphql.Field{
				Type: statusType,
				Args: toggleArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Control.SetTracking(p.Context, p.Args["enabled"].(bool)); err != nil {
						return nil, err
					}
					return status(), nil
				},
			},
			"setProximity": &graphql.Field{
				Type: statusType,
				Args: toggleArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if err := deps.Control.SetProximity(p.Context, p.Args["enabled"].(bool)); err != nil {
						return nil, err
					}
					return status(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func fixMap(fix *domain.LocationFix) map[string]interface{} {
	return map[string]interface{}{
		"lat":       fix.Lat,
		"lon":       fix.Lon,
		"timestamp": fix.Timestamp,
		"deviceId":  fix.DeviceID,
		"accuracy":  fix.Accuracy,
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
